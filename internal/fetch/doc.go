// Package fetch is the HTTP transport for catalog scraping. It paces
// requests with jittered delays, retries throttled responses with capped
// exponential backoff, rejects interstitial pages, and carries the session
// warm-up the catalog site expects before deep links work reliably.
package fetch
