package app

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"slot-service/internal/schedule"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables and indexes when they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const pgUniqueViolation = "23505"

// pgError maps constraint violations onto app errors.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Detail)
	}
	return err
}

func pgDate(d schedule.Date) pgtype.Date {
	// The zero Date is sent as NULL so NOT NULL rejects it.
	return pgtype.Date{Time: d.Time(), Valid: !d.IsZero()}
}

func pgDatePtr(d *schedule.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgDate(*d)
}

func pgTime(c schedule.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Minute/time.Microsecond), Valid: true}
}

func clockFromPg(t pgtype.Time) schedule.Clock {
	return schedule.Clock(t.Microseconds / int64(time.Minute/time.Microsecond))
}

func dateFromPg(d pgtype.Date) *schedule.Date {
	if !d.Valid {
		return nil
	}
	out := schedule.DateOf(d.Time)
	return &out
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SlotStore keeps slots in Postgres.
type SlotStore struct {
	DB *pgxpool.Pool
}

const slotColumns = `id, tenant_id, date, start_time, end_time, capacity, resource_unit, blackout, notes`

func scanSlot(row rowScanner) (schedule.PersistedSlot, error) {
	var (
		s          schedule.PersistedSlot
		day        pgtype.Date
		start, end pgtype.Time
	)
	if err := row.Scan(&s.ID, &s.TenantID, &day, &start, &end,
		&s.Capacity, &s.ResourceUnit, &s.Blackout, &s.Notes); err != nil {
		return schedule.PersistedSlot{}, err
	}
	s.Date = schedule.DateOf(day.Time)
	s.Start, s.End = clockFromPg(start), clockFromPg(end)
	return s, nil
}

func (s *SlotStore) FetchSlotsInRange(ctx context.Context, tenantID string, from, to schedule.Date) ([]schedule.PersistedSlot, error) {
	q := `SELECT ` + slotColumns + `
	      FROM slots
	      WHERE tenant_id=$1 AND date >= $2 AND date <= $3
	      ORDER BY date, start_time`
	rows, err := s.DB.Query(ctx, q, tenantID, pgDate(from), pgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.PersistedSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

// PatchSlot updates the non-nil fields of p on the tenant's slot.
func (s *SlotStore) PatchSlot(ctx context.Context, tenantID, id string, p schedule.SlotPatch) (schedule.PersistedSlot, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.PersistedSlot{}, false, nil
	}
	q := `UPDATE slots
	      SET capacity=COALESCE($3, capacity),
	          blackout=COALESCE($4, blackout),
	          notes=COALESCE($5, notes),
	          updated_at=now()
	      WHERE id=$1 AND tenant_id=$2
	      RETURNING ` + slotColumns
	slot, err := scanSlot(s.DB.QueryRow(ctx, q, id, tenantID, p.Capacity, p.Blackout, p.Notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.PersistedSlot{}, false, nil
	}
	if err != nil {
		return schedule.PersistedSlot{}, false, err
	}
	return slot, true, nil
}

func (s *SlotStore) BlackoutSlots(ctx context.Context, tenantID string, from, to schedule.Date, note *string) (int64, error) {
	q := `UPDATE slots
	      SET blackout=true, notes=COALESCE($4, notes), updated_at=now()
	      WHERE tenant_id=$1 AND date >= $2 AND date <= $3 AND blackout=false`
	res, err := s.DB.Exec(ctx, q, tenantID, pgDate(from), pgDate(to), note)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

// WithinTx runs fn in one transaction, committing only when fn succeeds.
func (s *SlotStore) WithinTx(ctx context.Context, fn func(w schedule.SlotWriter) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(slotTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type slotTx struct {
	tx pgx.Tx
}

func (t slotTx) UpdateSlotByKey(ctx context.Context, tenantID string, s schedule.DesiredSlot) (int64, error) {
	q := `UPDATE slots
	      SET capacity=$5, resource_unit=$6, blackout=$7, notes=$8, updated_at=now()
	      WHERE tenant_id=$1 AND date=$2 AND start_time=$3 AND end_time=$4`
	res, err := t.tx.Exec(ctx, q, tenantID, pgDate(s.Date), pgTime(s.Start), pgTime(s.End),
		s.Capacity, s.ResourceUnit, s.Blackout, s.Notes)
	if err != nil {
		return 0, pgError(err)
	}
	return res.RowsAffected(), nil
}

func (t slotTx) InsertSlot(ctx context.Context, tenantID string, s schedule.DesiredSlot) (string, error) {
	q := `INSERT INTO slots
	      (id, tenant_id, date, start_time, end_time, capacity, resource_unit, blackout, notes)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	id := uuid.NewString()
	if _, err := t.tx.Exec(ctx, q, id, tenantID, pgDate(s.Date), pgTime(s.Start), pgTime(s.End),
		s.Capacity, s.ResourceUnit, s.Blackout, s.Notes); err != nil {
		return "", pgError(err)
	}
	return id, nil
}

// TemplateStore keeps templates in Postgres with the config as JSONB.
type TemplateStore struct {
	DB *pgxpool.Pool
}

const templateColumns = `id, tenant_id, name, description, config, active_from, active_to, created_at, updated_at`

func scanTemplate(row rowScanner) (schedule.Template, error) {
	var (
		t        schedule.Template
		raw      []byte
		from, to pgtype.Date
	)
	if err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description, &raw,
		&from, &to, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return schedule.Template{}, err
	}
	cfg, err := schedule.DecodeConfig(raw)
	if err != nil {
		return schedule.Template{}, fmt.Errorf("template %s: %w", t.ID, err)
	}
	t.Config = cfg
	t.ActiveFrom, t.ActiveTo = dateFromPg(from), dateFromPg(to)
	return t, nil
}

func (s *TemplateStore) GetTemplate(ctx context.Context, tenantID, id string) (schedule.Template, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Template{}, false, nil
	}
	q := `SELECT ` + templateColumns + ` FROM slot_templates WHERE id=$1 AND tenant_id=$2`
	t, err := scanTemplate(s.DB.QueryRow(ctx, q, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.Template{}, false, nil
	}
	if err != nil {
		return schedule.Template{}, false, err
	}
	return t, true, nil
}

func (s *TemplateStore) ListTemplates(ctx context.Context, tenantID string) ([]schedule.Template, error) {
	q := `SELECT ` + templateColumns + ` FROM slot_templates WHERE tenant_id=$1 ORDER BY name, id`
	rows, err := s.DB.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TemplateStore) CreateTemplate(ctx context.Context, t *schedule.Template) error {
	cfg, err := json.Marshal(t.Config)
	if err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	q := `INSERT INTO slot_templates
	      (id, tenant_id, name, description, config, active_from, active_to, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	      RETURNING created_at, updated_at`
	err = s.DB.QueryRow(ctx, q, t.ID, t.TenantID, t.Name, t.Description, cfg,
		pgDatePtr(t.ActiveFrom), pgDatePtr(t.ActiveTo)).Scan(&t.CreatedAt, &t.UpdatedAt)
	return pgError(err)
}

func (s *TemplateStore) UpdateTemplate(ctx context.Context, t *schedule.Template) (bool, error) {
	if _, err := uuid.Parse(t.ID); err != nil {
		return false, nil
	}
	cfg, err := json.Marshal(t.Config)
	if err != nil {
		return false, err
	}
	q := `UPDATE slot_templates
	      SET name=$3, description=$4, config=$5, active_from=$6, active_to=$7, updated_at=now()
	      WHERE id=$1 AND tenant_id=$2
	      RETURNING created_at, updated_at`
	err = s.DB.QueryRow(ctx, q, t.ID, t.TenantID, t.Name, t.Description, cfg,
		pgDatePtr(t.ActiveFrom), pgDatePtr(t.ActiveTo)).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TemplateStore) DeleteTemplate(ctx context.Context, tenantID, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := s.DB.Exec(ctx, `DELETE FROM slot_templates WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
