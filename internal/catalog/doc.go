// Package catalog is the persistent store behind shinkan's scans. It keeps
// recorded volumes, classification outcomes, the verification cache, search
// pagination progress, operator decisions, alert history, and the publisher
// of record for each tracked series in a single SQLite database.
package catalog
