package pipeline

// NewVolume is one newly detected release, ready for notification.
type NewVolume struct {
	Series       string
	SeriesName   string
	Tome         *int
	ASIN         string
	URL          string
	ReleaseDate  string
	Title        string
	Publisher    string
	CoverURL     string
	DateChanged  bool
	PreviousDate string
}

// Verified is one volume confirmed during this run, new or not.
type Verified struct {
	ASIN        string
	URL         string
	Title       string
	Tome        *int
	ReleaseDate string
	Publisher   string
	New         bool
}

// Result is the outcome of one series scan.
type Result struct {
	Series     string
	SeriesName string
	New        []NewVolume
	Snapshot   []Verified
	Discovered int
}
