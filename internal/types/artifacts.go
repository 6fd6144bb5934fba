package types

// Signals and Tags are modeled as tagged variants rather than open maps
// (spec.md §9 "Dynamic JSON artifacts"): each detector/analyzer stage writes
// into its own named field so consumers don't have to type-assert through an
// untyped map, while still round-tripping as a single JSON blob in the
// cids.signals_json / cids.tags_json columns.

// HTTPSignal captures what the gateway client observed about a fetch.
type HTTPSignal struct {
	Status       int  `json:"status"`
	RangeIgnored bool `json:"range_ignored,omitempty"`
	TotalLength  int64 `json:"total_length,omitempty"`
}

// MagicSignal is the magic-byte detector's verdict.
type MagicSignal struct {
	MIME       string  `json:"mime"`
	Confidence float64 `json:"confidence"`
}

// ContainerSignal is the container-sniff detector's verdict.
type ContainerSignal struct {
	Container  string  `json:"container"` // pdf|zip|docx|xlsx|pptx|epub|apk|html|car
	MIME       string  `json:"mime"`
	ExtGuess   string  `json:"ext_guess,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ExternalClassifierSignal is the optional classifier endpoint's verdict.
type ExternalClassifierSignal struct {
	MIME       string  `json:"mime"`
	Ext        string  `json:"ext,omitempty"`
	Kind       string  `json:"kind,omitempty"`
	Confidence float64 `json:"confidence"`
}

// HeuristicSignal is the textual fallback detector's verdict.
type HeuristicSignal struct {
	TextLike      bool    `json:"text_like"`
	PrintableFrac float64 `json:"printable_frac"`
	PDFObjectScore int    `json:"pdf_object_score,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Signals is the open-but-typed detector diagnostics blob persisted to
// cids.signals_json.
type Signals struct {
	Magic               *MagicSignal              `json:"magic,omitempty"`
	Container           *ContainerSignal          `json:"container,omitempty"`
	HTTP                *HTTPSignal               `json:"http,omitempty"`
	Heuristic           *HeuristicSignal          `json:"heuristic,omitempty"`
	ExternalClassifier  *ExternalClassifierSignal `json:"external_classifier,omitempty"`
	TimingMs            int64                     `json:"timing_ms,omitempty"`
}

// DerivedFrom records the provenance of a re-derived root tag set (spec.md
// §4.8 step 7).
type DerivedFrom struct {
	CID  string `json:"cid"`
	Path string `json:"path"`
}

// ContentSignals describes where the analyzer's tokens/topics came from.
type ContentSignals struct {
	From      []string `json:"from,omitempty"`
	BytesRead int      `json:"bytes_read,omitempty"`
}

// Tags is the open-but-typed artifact persisted to cids.tags_json: topics,
// the token→count map, the coarse content class, and the deterministic tag
// vocabulary from the synthesizer.
type Tags struct {
	Version     int             `json:"version"`
	Topics      []string        `json:"topics,omitempty"`
	Tokens      map[string]int  `json:"tokens,omitempty"`
	ContentClass string         `json:"content_class,omitempty"` // site|video|image|doc, or unknown
	Lang        string          `json:"lang,omitempty"`
	Confidence  float64         `json:"confidence,omitempty"`
	Signals     *ContentSignals `json:"signals,omitempty"`
	DerivedFrom *DerivedFrom    `json:"derived_from,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// TagsSchemaVersion is baked into every Tags blob so future migrations can
// tell which shape they're reading.
const TagsSchemaVersion = 1
