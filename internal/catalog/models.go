package catalog

import (
	"strings"
	"time"
)

// Volume is one physical edition of one tome, keyed by its identifier.
// Series plus tome is deliberately not unique: re-releases and correction
// events can coexist until the operator or a later scan resolves them.
type Volume struct {
	ID          int64
	Series      string
	SeriesName  string
	Tome        *int
	ASIN        string
	URL         string
	ReleaseDate string
	Title       string
	Publisher   string
	FirstSeen   time.Time
	UpdatedAt   time.Time
}

// Outcome is the last-seen disposition of an identifier within a series.
type Outcome string

const (
	OutcomeCandidate     Outcome = "candidate"
	OutcomeDigital       Outcome = "digital"
	OutcomeOffTopicTitle Outcome = "off_topic_title"
	OutcomeDerivative    Outcome = "derivative"
	OutcomeBundle        Outcome = "bundle"
	OutcomeSponsored     Outcome = "sponsored"
	OutcomeNonPhysical   Outcome = "non_physical"
)

var allOutcomes = []Outcome{
	OutcomeCandidate,
	OutcomeDigital,
	OutcomeOffTopicTitle,
	OutcomeDerivative,
	OutcomeBundle,
	OutcomeSponsored,
	OutcomeNonPhysical,
}

// ParseOutcome converts a string into a known Outcome.
func ParseOutcome(value string) (Outcome, bool) {
	normalized := Outcome(strings.ToLower(strings.TrimSpace(value)))
	for _, o := range allOutcomes {
		if o == normalized {
			return o, true
		}
	}
	return "", false
}

// Classification records how an identifier was last classified for a series.
// The same identifier may be classified differently under two series; a
// digital edition relevant to one workflow can be noise to another.
type Classification struct {
	Series     string
	ASIN       string
	Outcome    Outcome
	Source     string
	Title      string
	LinkedASIN string
	SeenAt     time.Time
}

// CacheEntry is a verified snapshot of one identifier's catalog facts.
// Tome nil with RetryAllowed set means extraction failed and the identifier
// should be verified again; Tome nil with RetryAllowed clear means the
// listing is known to carry no tome number.
type CacheEntry struct {
	ASIN         string
	Tome         *int
	TomeFinal    bool
	RetryAllowed bool
	ReleaseDate  string
	Title        string
	Publisher    string
	VerifiedAt   time.Time
}

// Progress tracks how far catalog search pagination has been explored.
type Progress struct {
	Series   string
	LastPage int
	Complete bool
}

// ManualStatus is an operator override for one identifier.
type ManualStatus string

const (
	StatusUnprocessed ManualStatus = "unprocessed"
	StatusAccepted    ManualStatus = "accepted"
	StatusRejected    ManualStatus = "rejected"
)

// ParseManualStatus converts a string into a known ManualStatus.
func ParseManualStatus(value string) (ManualStatus, bool) {
	switch ManualStatus(strings.ToLower(strings.TrimSpace(value))) {
	case StatusAccepted:
		return StatusAccepted, true
	case StatusRejected:
		return StatusRejected, true
	case StatusUnprocessed:
		return StatusUnprocessed, true
	}
	return "", false
}

// Alert records that a new-release notification went out for a series+URL,
// and at which release date. A later scan seeing a different date re-opens
// the alert (pre-order date corrections).
type Alert struct {
	Series      string
	URL         string
	ReleaseDate string
	CreatedAt   time.Time
}

// Stats aggregates table counts for status output.
type Stats struct {
	Volumes         int
	Classifications int
	CacheEntries    int
	Alerts          int
	SeriesTracked   int
}

// Health captures diagnostic information about the catalog database.
type Health struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	IntegrityCheck   bool
	TotalVolumes     int
	Error            string
}
