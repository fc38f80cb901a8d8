// Package extractor turns raw catalog HTML into typed data. It parses search
// result pages, product detail pages, the cross-sell sections used for
// series exploration, and the format switcher used to hop from a digital
// listing to its physical edition. Pure functions, no network access.
package extractor
