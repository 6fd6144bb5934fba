// Package types holds the entities shared across the storage layer and the
// workers that populate it: the CID record, its edges and path index, the
// inverted token index, and the metrics singleton.
package types

import "time"

// PresentSource records how a CID entered the catalogue.
type PresentSource string

const (
	SourcePinRoot  PresentSource = "pin-root"
	SourceExpanded PresentSource = "expanded"
)

// Kind is the coarse content classification assigned by the detector.
type Kind string

const (
	KindImage   Kind = "image"
	KindHTML    Kind = "html"
	KindText    Kind = "text"
	KindDoc     Kind = "doc"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindArchive Kind = "archive"
	KindPackage Kind = "package"
	KindIPLD    Kind = "ipld"
	KindUnknown Kind = "unknown"
)

// DetectionSource identifies which detector stage produced the winning verdict.
type DetectionSource string

const (
	DetectionMagic      DetectionSource = "magic"
	DetectionContainer  DetectionSource = "container"
	DetectionExternal   DetectionSource = "external-classifier"
	DetectionHeuristic  DetectionSource = "heuristic"
	DetectionHead       DetectionSource = "head"
)

// CID is the primary catalogue record (spec.md §3 "CID record").
type CID struct {
	CID string `json:"cid"`

	// Presence lifecycle.
	Present        bool          `json:"present"`
	PresentSource  PresentSource `json:"present_source"`
	PresentReason  string        `json:"present_reason"`
	FirstSeenAtMs  int64         `json:"first_seen_at"`
	LastSeenAtMs   int64         `json:"last_seen_at"`
	RemovedAtMs    *int64        `json:"removed_at,omitempty"`

	// Detection.
	SizeBytes  *int64          `json:"size_bytes,omitempty"`
	MIME       *string         `json:"mime,omitempty"`
	ExtGuess   *string         `json:"ext_guess,omitempty"`
	Kind       Kind            `json:"kind"`
	Confidence float64         `json:"confidence"`
	Source     DetectionSource `json:"source,omitempty"`

	// Artifacts.
	SignalsJSON    string `json:"signals_json"`
	TagsJSON       string `json:"tags_json"`
	DetectorVersion string `json:"detector_version"`
	IndexedAtMs    int64  `json:"indexed_at"`
	Error          *string `json:"error,omitempty"`
	UpdatedAtMs    int64  `json:"updated_at"`

	// Directory lifecycle.
	IsDirectory  bool    `json:"is_directory"`
	ExpandedAtMs *int64  `json:"expanded_at,omitempty"`
	ExpandError  *string `json:"expand_error,omitempty"`
	ExpandDepth  int     `json:"expand_depth"`

	// Site root fields.
	SiteEntryPath        *string `json:"site_entry_path,omitempty"`
	SiteEntryCID         *string `json:"site_entry_cid,omitempty"`
	SiteEntryIndexedAtMs *int64  `json:"site_entry_indexed_at,omitempty"`
}

// NowMs returns the current time as epoch milliseconds. Workers use this
// instead of calling time.Now() ad hoc so every monotonic-ms field in the
// schema is produced the same way.
func NowMs(t time.Time) int64 {
	return t.UnixMilli()
}

// Edge is a parent/child relationship discovered by the directory expander.
type Edge struct {
	ParentCID    string `json:"parent_cid"`
	ChildCID     string `json:"child_cid"`
	FirstSeenAtMs int64 `json:"first_seen_at"`
	LastSeenAtMs  int64 `json:"last_seen_at"`
}

// Path is one entry in the per-root path index.
type Path struct {
	RootCID  string  `json:"root_cid"`
	Path     string  `json:"path"`
	LeafCID  string  `json:"leaf_cid"`
	Depth    int     `json:"depth"`
	MIMEHint *string `json:"mime_hint,omitempty"`
}

// Token is one row of the inverted token index.
type Token struct {
	Token string `json:"token"`
	CID   string `json:"cid"`
	Count int    `json:"count"`
}

// Metrics is the single-row counters/gauges singleton (spec.md §3).
type Metrics struct {
	PinsCurrent int64 `json:"pins_current"`

	LastPinRefreshAtMs    int64 `json:"last_pin_refresh_at"`
	LastPinRefreshDurMs   int64 `json:"last_pin_refresh_duration_ms"`
	LastPinRefreshSuccess bool  `json:"last_pin_refresh_success"`

	TypesIndexedTotal   int64 `json:"types_indexed_total"`
	DirsExpandedTotal   int64 `json:"dirs_expanded_total"`
	DirExpandErrorsTotal int64 `json:"dir_expand_errors_total"`
	RangeIgnoredTotal   int64 `json:"range_ignored_total"`
}
