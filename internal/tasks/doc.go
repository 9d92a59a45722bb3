// Package tasks orchestrates workout transfers between fitness services with real-time progress reporting.
//
// # Core Operations
//
// The [TransferEngine] interface defines two operations:
//
//  1. [TransferEngine.Harvest] : Full MapMyRun export run
//     - Logs in to the source service (one re-login on mid-run session expiry)
//     - Fetches the workout index CSV into the working directory
//     - Exports each listed workout as a file, paced by a page rate limiter
//     - Logs and skips individual export failures, never aborting the run for them
//
//  2. [TransferEngine.Upload] : Full Strava upload run
//     - Enumerates export files in the working directory in filename order
//     - Derives each activity's name and type from its filename
//     - Submits each file and polls the remote job until processed, with a
//     bounded poll budget
//     - Honors rate limits by waiting and retrying the same file
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default to
// prevent blocking. Coarse percentages additionally go to the progress store
// after every disposed item, so external pollers see 100*(done/total) without
// holding a channel.
//
// # Transfer History
//
// The optional [HistoryRecorder] interface enables run and upload persistence.
// History is observational: recording failures only log, and past runs never
// change what a new run transfers. Re-running an upload resubmits every file.
//
// # Implementation
//
// [WorkoutEngine] implements [TransferEngine] with dependencies on:
//   - [services.SourceService] : MapMyRun session client
//   - [services.UploadService] : Strava uploads API client
//   - [progress.Store] : file-backed percentage store
//   - [HistoryRecorder] : Optional persistence layer (repositories.HistoryService)
package tasks
