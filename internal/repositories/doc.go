// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [TransferRunRepository] : Harvest and upload run history with status tracking
//   - [ActivityRepository] : Uploaded activity history with per-run queries
//   - [HistoryService] : tasks.HistoryRecorder adapter over both repositories
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42, activity #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table counters in the shared sequences table.
package repositories
