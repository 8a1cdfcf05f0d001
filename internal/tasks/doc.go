// Package tasks runs playlist downloads with real-time progress reporting.
//
// # Pipeline
//
// A download is layered from the outside in:
//
//  1. [Engine] : Resolves a playlist through the catalog provider and runs it as one batch
//  2. [Orchestrator] : Walks the batch strictly sequentially, honoring the cancel flag in [BatchState]
//  3. [Processor] : Drives one item from lookup to its canonical path with bounded retries
//  4. [Executor] : Tries every retrieval strategy against one candidate, first success wins
//
// An item whose destination file already exists is skipped without touching the network,
// so re-running a batch only fetches what is missing.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Attempt History
//
// The optional [AttemptRecorder] and [BatchRecorder] interfaces persist every strategy invocation
// and every finished batch. Recorders swallow their own errors so history never interrupts a download.
package tasks
