package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when a template omits a field.
const (
	DefaultSlotLengthMin = 30
	DefaultCapacity      = 10
	DefaultResourceUnit  = "tons"
)

var (
	defaultDayStart = ClockOf(8, 0)
	defaultDayEnd   = ClockOf(17, 0)
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// WeekdayName returns the three-letter lowercase name used in template configs.
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String()[:3])
}

// DaySchedule is the opening window of a single day. Nil pointer fields fall
// back to the template defaults.
type DaySchedule struct {
	Enabled      bool
	Start        Clock
	End          Clock
	Capacity     *float64
	ResourceUnit *string
	Notes        *string
}

// ExceptionKind tags what an Exception does to its date.
type ExceptionKind int

const (
	ExceptionBlackout ExceptionKind = iota + 1
	ExceptionOverride
)

func (k ExceptionKind) String() string {
	switch k {
	case ExceptionBlackout:
		return "blackout"
	case ExceptionOverride:
		return "override"
	}
	return fmt.Sprintf("ExceptionKind(%d)", int(k))
}

func parseExceptionKind(s string) (ExceptionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blackout":
		return ExceptionBlackout, true
	case "override":
		return ExceptionOverride, true
	}
	return 0, false
}

// Exception replaces weekday scheduling for one date. Schedule is only read
// for overrides.
type Exception struct {
	Date     Date
	Kind     ExceptionKind
	Schedule DaySchedule
}

// ConfigIssue describes a config entry that was dropped while decoding.
type ConfigIssue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (i ConfigIssue) String() string {
	return i.Path + ": " + i.Reason
}

// TemplateConfig is the recurring schedule a template plans from.
type TemplateConfig struct {
	Weekdays            map[time.Weekday]DaySchedule
	SlotLengthMin       int
	Exceptions          []Exception
	DefaultCapacity     float64
	DefaultResourceUnit string
	DefaultNotes        string

	// Issues lists entries dropped by DecodeConfig.
	Issues []ConfigIssue
}

// Template is a tenant-owned, named TemplateConfig.
type Template struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      TemplateConfig `json:"config"`
	ActiveFrom  *Date          `json:"active_from,omitempty"`
	ActiveTo    *Date          `json:"active_to,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
}

// ActiveWindow clips [from, to] to the template's active period. ok is false
// when nothing of the range is left.
func (t Template) ActiveWindow(from, to Date) (Date, Date, bool) {
	if t.ActiveFrom != nil && from.Before(*t.ActiveFrom) {
		from = *t.ActiveFrom
	}
	if t.ActiveTo != nil && to.After(*t.ActiveTo) {
		to = *t.ActiveTo
	}
	return from, to, !from.After(to)
}

// ExceptionFor returns the first exception for d.
func (c TemplateConfig) ExceptionFor(d Date) (Exception, bool) {
	for _, ex := range c.Exceptions {
		if ex.Date == d {
			return ex, true
		}
	}
	return Exception{}, false
}

// AddBlackout appends a blackout for d unless d already has an exception.
func (c *TemplateConfig) AddBlackout(d Date) bool {
	if _, ok := c.ExceptionFor(d); ok {
		return false
	}
	c.Exceptions = append(c.Exceptions, Exception{Date: d, Kind: ExceptionBlackout})
	return true
}

// wire shapes

type dayScheduleJSON struct {
	Enabled      *bool    `json:"enabled,omitempty"`
	StartTime    string   `json:"start_time,omitempty"`
	EndTime      string   `json:"end_time,omitempty"`
	Capacity     *float64 `json:"capacity,omitempty"`
	ResourceUnit *string  `json:"resource_unit,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
}

type exceptionJSON struct {
	Date string `json:"date"`
	Type string `json:"type"`
	dayScheduleJSON
}

type configJSON struct {
	Weekdays            map[string]json.RawMessage `json:"weekdays"`
	SlotLengthMin       *int                       `json:"slot_length_min"`
	Exceptions          []json.RawMessage          `json:"exceptions"`
	DefaultCapacity     *float64                   `json:"default_capacity"`
	DefaultResourceUnit *string                    `json:"default_resource_unit"`
	DefaultNotes        *string                    `json:"default_notes"`
}

// DecodeConfig reads a template config. Malformed weekday or exception entries
// are dropped and recorded in Issues; only invalid JSON is an error.
func DecodeConfig(data []byte) (TemplateConfig, error) {
	var raw configJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return TemplateConfig{}, fmt.Errorf("decode template config: %w", err)
	}

	cfg := TemplateConfig{
		Weekdays:            make(map[time.Weekday]DaySchedule),
		SlotLengthMin:       DefaultSlotLengthMin,
		DefaultCapacity:     DefaultCapacity,
		DefaultResourceUnit: DefaultResourceUnit,
	}
	if raw.SlotLengthMin != nil {
		cfg.SlotLengthMin = *raw.SlotLengthMin
	}
	if raw.DefaultCapacity != nil {
		cfg.DefaultCapacity = *raw.DefaultCapacity
	}
	if raw.DefaultResourceUnit != nil {
		cfg.DefaultResourceUnit = *raw.DefaultResourceUnit
	}
	if raw.DefaultNotes != nil {
		cfg.DefaultNotes = *raw.DefaultNotes
	}

	names := make([]string, 0, len(raw.Weekdays))
	for name := range raw.Weekdays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := "weekdays." + name
		wd, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			cfg.Issues = append(cfg.Issues, ConfigIssue{Path: path, Reason: "unknown weekday"})
			continue
		}
		if emptyEntry(raw.Weekdays[name]) {
			cfg.Issues = append(cfg.Issues, ConfigIssue{Path: path, Reason: "empty day entry, day is skipped"})
			continue
		}
		var day dayScheduleJSON
		if err := json.Unmarshal(raw.Weekdays[name], &day); err != nil {
			cfg.Issues = append(cfg.Issues, ConfigIssue{Path: path, Reason: err.Error()})
			continue
		}
		sched, err := day.toSchedule()
		if err != nil {
			cfg.Issues = append(cfg.Issues, ConfigIssue{Path: path, Reason: err.Error()})
			continue
		}
		cfg.Weekdays[wd] = sched
	}

	for i, msg := range raw.Exceptions {
		path := fmt.Sprintf("exceptions[%d]", i)
		ex, err := decodeException(msg)
		if err != nil {
			cfg.Issues = append(cfg.Issues, ConfigIssue{Path: path, Reason: err.Error()})
			continue
		}
		cfg.Exceptions = append(cfg.Exceptions, ex)
	}

	return cfg, nil
}

// emptyEntry reports whether a day entry is null or an object with no keys.
// Such entries plan nothing, the same as an absent day.
func emptyEntry(msg json.RawMessage) bool {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var fields map[string]json.RawMessage
	return json.Unmarshal(trimmed, &fields) == nil && len(fields) == 0
}

func decodeException(msg json.RawMessage) (Exception, error) {
	var raw exceptionJSON
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Exception{}, err
	}
	d, err := ParseDate(raw.Date)
	if err != nil {
		return Exception{}, err
	}
	kind, ok := parseExceptionKind(raw.Type)
	if !ok {
		return Exception{}, fmt.Errorf("unknown exception type %q", raw.Type)
	}
	ex := Exception{Date: d, Kind: kind}
	if kind == ExceptionOverride {
		sched, err := raw.dayScheduleJSON.toSchedule()
		if err != nil {
			return Exception{}, err
		}
		ex.Schedule = sched
	}
	return ex, nil
}

func (d dayScheduleJSON) toSchedule() (DaySchedule, error) {
	sched := DaySchedule{
		Enabled:      true,
		Start:        defaultDayStart,
		End:          defaultDayEnd,
		Capacity:     d.Capacity,
		ResourceUnit: d.ResourceUnit,
		Notes:        d.Notes,
	}
	if d.Enabled != nil {
		sched.Enabled = *d.Enabled
	}
	if d.StartTime != "" {
		c, err := ParseClock(d.StartTime)
		if err != nil {
			return DaySchedule{}, err
		}
		sched.Start = c
	}
	if d.EndTime != "" {
		c, err := ParseClock(d.EndTime)
		if err != nil {
			return DaySchedule{}, err
		}
		sched.End = c
	}
	return sched, nil
}

func fromSchedule(s DaySchedule) dayScheduleJSON {
	enabled := s.Enabled
	return dayScheduleJSON{
		Enabled:      &enabled,
		StartTime:    s.Start.String(),
		EndTime:      s.End.String(),
		Capacity:     s.Capacity,
		ResourceUnit: s.ResourceUnit,
		Notes:        s.Notes,
	}
}

// MarshalJSON writes the config in the same shape DecodeConfig reads.
func (c TemplateConfig) MarshalJSON() ([]byte, error) {
	type out struct {
		Weekdays            map[string]dayScheduleJSON `json:"weekdays"`
		SlotLengthMin       int                        `json:"slot_length_min"`
		Exceptions          []exceptionJSON            `json:"exceptions"`
		DefaultCapacity     float64                    `json:"default_capacity"`
		DefaultResourceUnit string                     `json:"default_resource_unit"`
		DefaultNotes        string                     `json:"default_notes"`
	}
	o := out{
		Weekdays:            make(map[string]dayScheduleJSON, len(c.Weekdays)),
		SlotLengthMin:       c.SlotLengthMin,
		Exceptions:          make([]exceptionJSON, 0, len(c.Exceptions)),
		DefaultCapacity:     c.DefaultCapacity,
		DefaultResourceUnit: c.DefaultResourceUnit,
		DefaultNotes:        c.DefaultNotes,
	}
	for wd, sched := range c.Weekdays {
		o.Weekdays[WeekdayName(wd)] = fromSchedule(sched)
	}
	for _, ex := range c.Exceptions {
		e := exceptionJSON{Date: ex.Date.String(), Type: ex.Kind.String()}
		if ex.Kind == ExceptionOverride {
			e.dayScheduleJSON = fromSchedule(ex.Schedule)
		}
		o.Exceptions = append(o.Exceptions, e)
	}
	return json.Marshal(o)
}

func (c *TemplateConfig) UnmarshalJSON(data []byte) error {
	cfg, err := DecodeConfig(data)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

type configRules struct {
	SlotLengthMin       int     `validate:"gt=0,lte=1440"`
	DefaultCapacity     float64 `validate:"gte=0"`
	DefaultResourceUnit string  `validate:"required,max=32"`
	DefaultNotes        string  `validate:"max=500"`
}

type dayRules struct {
	Capacity     *float64 `validate:"omitempty,gte=0"`
	ResourceUnit *string  `validate:"omitempty,min=1,max=32"`
	Notes        *string  `validate:"omitempty,max=500"`
}

var validate = validator.New()

// ValidateConfig is the strict check applied when a template is written.
// Dropped entries from decoding count as errors here.
func ValidateConfig(c TemplateConfig) error {
	var problems []string
	for _, issue := range c.Issues {
		problems = append(problems, issue.String())
	}

	if err := validate.Struct(configRules{
		SlotLengthMin:       c.SlotLengthMin,
		DefaultCapacity:     c.DefaultCapacity,
		DefaultResourceUnit: c.DefaultResourceUnit,
		DefaultNotes:        c.DefaultNotes,
	}); err != nil {
		problems = append(problems, describeValidation("config", err)...)
	}

	checkDay := func(path string, s DaySchedule) {
		if err := validate.Struct(dayRules{Capacity: s.Capacity, ResourceUnit: s.ResourceUnit, Notes: s.Notes}); err != nil {
			problems = append(problems, describeValidation(path, err)...)
		}
		if s.Enabled && s.End <= s.Start {
			problems = append(problems, path+": end_time must be after start_time")
		}
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if s, ok := c.Weekdays[wd]; ok {
			checkDay("weekdays."+WeekdayName(wd), s)
		}
	}
	seen := make(map[Date]bool, len(c.Exceptions))
	for i, ex := range c.Exceptions {
		path := fmt.Sprintf("exceptions[%d]", i)
		if seen[ex.Date] {
			problems = append(problems, path+": duplicate exception for "+ex.Date.String())
		}
		seen[ex.Date] = true
		if ex.Kind == ExceptionOverride {
			checkDay(path, ex.Schedule)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func describeValidation(prefix string, err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{prefix + ": " + err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s.%s: failed %s", prefix, fe.Field(), fe.Tag()))
	}
	return out
}
