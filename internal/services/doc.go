// Package services implements the two external providers the download pipeline talks to.
//
// # Catalog Provider
//
// [CatalogProvider] supplies playlists and their items. [SpotifyService] implements it with [oauth2].
// Authentication accepts a pre-issued access token, exchanges an authorization code, or falls back to the
// client credentials grant (public playlists only).
//
// Playlist items are paged 100 at a time until a short page is returned. Local files and
// removed tracks are skipped. The first listed artist is used.
//
// # Candidate Locator
//
// [Locator] turns a text query into ranked [models.SourceCandidate] values. [YouTubeSearch] scrapes
// the public results page with a rotated browser User-Agent, extracts 11-character video IDs, dedupes them
// in page order and keeps the first three. Requests are paced with a [rate.Limiter].
//
// Locate never fails loudly: transport errors, non-2xx statuses and empty pages all yield
// an empty slice, and the caller decides whether to back off.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called or token rejected
//   - [shared.ErrAuthFailed] : token exchange failed
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : Playlist ID or name not found
package services
