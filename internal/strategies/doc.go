// Package strategies implements the retrieval strategies tried, in order, for each source candidate.
//
// # Chain
//
// A [Registry] builds the chain named by download.strategies. The default order is
// invidious, anonymous, legacy, alternative, browser, cli, direct:
//
//   - invidious: Invidious API mirrors, each behind a circuit breaker
//   - anonymous: embedded yt-dlp with no cookies, no cache and a rotated User-Agent
//   - legacy: embedded yt-dlp with a fixed old agent and legacy server connect
//   - alternative: embedded yt-dlp with browser headers, aria2c when installed
//   - browser: embedded yt-dlp with Chrome cookies when a profile exists
//   - cli: the yt-dlp executable via os/exec
//   - direct: embedded yt-dlp with minimal options
//
// Every strategy writes into the scratch directory it is handed and reports
// success only for a non-empty audio/mpeg file. Anything else is routed
// through the [Normalizer] and the intermediate removed.
//
// Failures carry a sentinel from the shared error taxonomy; extractor stderr is
// scanned for "unavailable" and "403/429" markers to tell NotFound and
// ProviderRejected apart from transient errors.
package strategies
