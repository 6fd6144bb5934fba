// Package tagger defines the abstract enrichment capability the content
// analyzer delegates image and long-text tagging to (spec.md §4.9). The
// preferred implementation is an isolated worker process; an in-process
// fallback covers the case where the worker is disabled or repeatedly
// fails. Both failure modes are swallowed: callers see nil, never an error
// that would stop analysis.
package tagger

import "context"

// DetectionInfo is the subset of a detection verdict the image tagger needs.
type DetectionInfo struct {
	MIME     string
	Kind     string
	ExtGuess string
}

// Result is the enrichment a tagger call contributes: extra topics and a
// token→score map, merged additively into the analyzer's own tokens.
type Result struct {
	Topics []string
	Tokens map[string]float64
}

// Tagger is the abstract {tagText, tagImage} contract of spec.md §4.9.
// Implementations must never return an error for a "the model declined"
// case — only for calls that couldn't be attempted at all; even then
// callers are expected to treat the error as "no enrichment" and continue.
type Tagger interface {
	TagText(ctx context.Context, text string) (*Result, error)
	TagImage(ctx context.Context, cid string, detection DetectionInfo) (*Result, error)
}

// NullTagger never enriches; it's the in-process fallback of last resort
// when no worker is configured and no smarter in-process tagger is wired.
type NullTagger struct{}

func (NullTagger) TagText(ctx context.Context, text string) (*Result, error)                      { return nil, nil }
func (NullTagger) TagImage(ctx context.Context, cid string, d DetectionInfo) (*Result, error) { return nil, nil }
