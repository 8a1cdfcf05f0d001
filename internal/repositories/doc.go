// Package repositories implements SQLite persistence for download history.
//
// Key Implementations:
//   - [AttemptRepository] : Append-only log of strategy invocations, queryable by batch, item or recency
//   - [BatchRepository] : One row per batch run with its outcome counts
//   - [HistoryRecorder] : Adapter that feeds both repositories from the download pipeline
//
// Tables are created by the embedded migrations in the shared package.
package repositories
