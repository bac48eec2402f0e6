// Package schedule turns slot templates into persisted slots.
//
// Publishing a template runs in three steps:
//   - PlanSlots expands a TemplateConfig over a date range into DesiredSlots.
//     It is pure: no I/O and no errors.
//   - Diff compares desired slots with what is stored and sorts them into
//     create, update and skip buckets without writing (preview).
//   - Publish writes desired slots in one transaction, updating rows by
//     natural key (tenant, date, start, end) and inserting the rest.
//
// Storage is reached only through SlotReader and Transactor, so callers pass
// in whatever backs them.
package schedule
