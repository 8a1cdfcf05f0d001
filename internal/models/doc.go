// Package models defines the value types shared by every stage of the songdl download pipeline.
//
// Catalog side:
//   - [CatalogItem] : Track metadata read from the catalog provider
//   - [Playlist] and [PlaylistExport] : Playlist metadata and its items
//
// Retrieval side:
//   - [SourceCandidate] : Ranked identifier returned by candidate discovery
//   - [RetrievalResult] : Tagged success/failure of one retrieval attempt
//
// Batch side:
//   - [DownloadJob] : Per-item status machine (pending → in_progress → terminal)
//   - [ItemOutcome] : Downloaded, skipped or gave up
//   - [BatchSummary] : Counts over a whole batch
package models
