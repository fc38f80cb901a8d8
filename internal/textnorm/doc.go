// Package textnorm provides the pure text heuristics behind series matching:
// title normalization, tome number extraction, publisher canonicalization,
// bundle detection, and ASIN classification.
//
// Everything here is stateless and free of I/O so the rules can be exercised
// exhaustively in tests. The tables encode catalog-specific conventions
// (Japanese volume markers, publisher imprints, identifier prefixes) and are
// the single source of truth for them; pipeline code must not reimplement
// these rules inline.
package textnorm
