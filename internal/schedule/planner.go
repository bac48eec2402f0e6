package schedule

import "time"

// PlanSlots expands a template config into the slots it wants for every date
// in [start, end]. Output is ordered by date then start time and never holds
// two slots with the same natural key.
//
// Dates are wall-clock dates in loc; loc only decides which weekday a date
// falls on. A nil loc means UTC. The plan does not depend on tenantID.
func PlanSlots(tenantID string, cfg TemplateConfig, start, end Date, loc *time.Location) []DesiredSlot {
	var out []DesiredSlot
	for d := start; !d.After(end); d = d.AddDays(1) {
		sched, ok := cfg.scheduleFor(d, loc)
		if !ok {
			continue
		}
		out = append(out, cfg.slotsFor(d, sched)...)
	}
	return out
}

// scheduleFor resolves the day schedule for d. An exception on d wins over
// the weekday entry.
func (c TemplateConfig) scheduleFor(d Date, loc *time.Location) (DaySchedule, bool) {
	if ex, ok := c.ExceptionFor(d); ok {
		switch ex.Kind {
		case ExceptionBlackout:
			return DaySchedule{}, false
		case ExceptionOverride:
			return ex.Schedule, ex.Schedule.Enabled
		}
	}
	sched, ok := c.Weekdays[d.Weekday(loc)]
	if !ok || !sched.Enabled {
		return DaySchedule{}, false
	}
	return sched, true
}

// slotsFor steps through the day window in fixed-length slots. A trailing
// remainder shorter than one slot is dropped.
func (c TemplateConfig) slotsFor(d Date, sched DaySchedule) []DesiredSlot {
	length := Clock(c.SlotLengthMin)
	if length <= 0 {
		return nil
	}

	capacity := c.DefaultCapacity
	if sched.Capacity != nil {
		capacity = *sched.Capacity
	}
	unit := c.DefaultResourceUnit
	if sched.ResourceUnit != nil {
		unit = *sched.ResourceUnit
	}
	notes := c.DefaultNotes
	if sched.Notes != nil {
		notes = *sched.Notes
	}

	var out []DesiredSlot
	for cursor := sched.Start; cursor+length <= sched.End; cursor += length {
		out = append(out, DesiredSlot{
			Date:         d,
			Start:        cursor,
			End:          cursor + length,
			Capacity:     capacity,
			ResourceUnit: unit,
			Notes:        notes,
		})
	}
	return out
}
