// Package notifications delivers push notifications for newly detected
// volumes, release date changes, and scan summaries. The only backend is
// ntfy; with no topic configured every notification is a silent no-op.
package notifications
