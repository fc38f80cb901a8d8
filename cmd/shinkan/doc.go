// Package main hosts the shinkan CLI entrypoint and command graph.
//
// The Cobra-based command tree drives catalog scans, tracked series
// maintenance, manual review of discovered listings, collection export, and
// configuration scaffolding. It centralizes configuration resolution and
// store access so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
