// Package pipeline implements the per-series discovery and verification
// scan. Phase A builds an ordered map of candidate identifiers from the
// store, the reference identifier, manual URLs, cross-sell exploration, and
// paginated catalog search. Phase B verifies each candidate against the
// cache or a live detail fetch and decides newness. Phase C hunts for tome
// numbers missing from the contiguous range the run produced.
package pipeline
