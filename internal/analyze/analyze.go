package analyze

import (
	"context"
	"path"
	"strings"

	"github.com/network-lumen/gateway-agent/internal/tagger"
	"github.com/network-lumen/gateway-agent/internal/types"
)

// Input is what the type crawler hands the analyzer after detection.
type Input struct {
	CID      string
	Kind     types.Kind
	MIME     string
	ExtGuess string
	Body     []byte // capped body sample fetched by the caller
	Filename string
}

// Result is the analyzer's output (spec.md §4.4 "Output shape").
type Result struct {
	Topics       []string
	Tokens       map[string]int
	ContentClass string
	Lang         string
	Confidence   float64
	Signals      types.ContentSignals
}

// Analyzer dispatches by kind and delegates enrichment to a Tagger.
type Analyzer struct {
	tagger tagger.Tagger
}

func New(t tagger.Tagger) *Analyzer {
	if t == nil {
		t = tagger.NullTagger{}
	}
	return &Analyzer{tagger: t}
}

// Analyze dispatches on in.Kind. Kinds with no content analysis defined
// return (nil, nil), matching spec.md §4.4 "other kinds: return null".
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Result, error) {
	switch in.Kind {
	case types.KindHTML:
		return a.analyzeHTML(ctx, in)
	case types.KindText, types.KindDoc:
		return a.analyzeTextLike(ctx, in)
	case types.KindImage:
		return a.analyzeImage(ctx, in)
	case types.KindVideo:
		return a.analyzeVideo(in)
	default:
		return nil, nil
	}
}

func (a *Analyzer) analyzeHTML(ctx context.Context, in Input) (*Result, error) {
	extract := extractHTML(in.Body)
	text := strings.Join([]string{extract.Title, extract.Description, extract.Text}, " ")

	tokens := Tokenize(text, "en")
	topics := Topics(tokens)

	if tagged, err := a.tagger.TagText(ctx, text); err == nil && tagged != nil {
		mergeTokens(tokens, tagged.Tokens)
		topics = mergeTopics(tagged.Topics, topics)
	}

	return &Result{
		Topics:       topics,
		Tokens:       tokens,
		ContentClass: "site",
		Lang:         "en",
		Confidence:   0.85,
		Signals:      types.ContentSignals{From: []string{"html"}, BytesRead: len(in.Body)},
	}, nil
}

func (a *Analyzer) analyzeTextLike(ctx context.Context, in Input) (*Result, error) {
	lines := firstNLines(string(in.Body), 20)
	text := strings.Join(lines, "\n")

	contentClass := "doc"
	for _, l := range lines {
		if strings.Contains(l, "-->") {
			contentClass = "video"
			break
		}
	}

	tokens := Tokenize(text, "en")
	topics := Topics(tokens)

	if tagged, err := a.tagger.TagText(ctx, text); err == nil && tagged != nil {
		mergeTokens(tokens, tagged.Tokens)
		topics = mergeTopics(tagged.Topics, topics)
	}

	return &Result{
		Topics:       topics,
		Tokens:       tokens,
		ContentClass: contentClass,
		Lang:         "en",
		Confidence:   0.7,
		Signals:      types.ContentSignals{From: []string{"text"}, BytesRead: len(in.Body)},
	}, nil
}

func (a *Analyzer) analyzeImage(ctx context.Context, in Input) (*Result, error) {
	tokens := Tokenize(filenameStem(in), "en")
	topics := Topics(tokens)

	if tagged, err := a.tagger.TagImage(ctx, in.CID, tagger.DetectionInfo{
		MIME: in.MIME, Kind: string(in.Kind), ExtGuess: in.ExtGuess,
	}); err == nil && tagged != nil {
		mergeTokens(tokens, tagged.Tokens)
		topics = mergeTopics(tagged.Topics, topics)
	}

	return &Result{
		Topics:       topics,
		Tokens:       tokens,
		ContentClass: "image",
		Confidence:   0.6,
		Signals:      types.ContentSignals{From: []string{"filename", "image-tagger"}},
	}, nil
}

func (a *Analyzer) analyzeVideo(in Input) (*Result, error) {
	base := map[string]int{"video": 1}
	if in.ExtGuess != "" {
		base[in.ExtGuess] = 1
	}
	container := containerTypeFromMIME(in.MIME)
	if container != "" {
		base[container] = 1
	}
	for tok := range Tokenize(filenameStem(in), "en") {
		base[tok]++
	}
	return &Result{
		Topics:       Topics(base),
		Tokens:       base,
		ContentClass: "video",
		Confidence:   0.75,
		Signals:      types.ContentSignals{From: []string{"filename", "base-tokens"}},
	}, nil
}

func filenameStem(in Input) string {
	name := in.Filename
	if name == "" {
		return ""
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(path.Base(name), ext)
}

func containerTypeFromMIME(mime string) string {
	parts := strings.SplitN(mime, "/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}

func firstNLines(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// mergeTokens adds tagger-contributed scores into the derived token counts
// additively (spec.md §4.4 "Tagger outputs are merged by additive count").
func mergeTokens(dst map[string]int, src map[string]float64) {
	for tok, score := range src {
		dst[tok] += int(score)
	}
}

// mergeTopics appends tagger topics first, deduplicated against the
// derived set (spec.md §4.4 "tagger-first").
func mergeTopics(taggerTopics, derived []string) []string {
	seen := make(map[string]bool, len(taggerTopics)+len(derived))
	out := make([]string, 0, len(taggerTopics)+len(derived))
	for _, t := range taggerTopics {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range derived {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
