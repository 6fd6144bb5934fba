// Package detect implements the multi-signal type detector (spec.md §4.3):
// HEAD probe, byte-windowed sampling, magic-byte detection, container
// sniffing, an optional external classifier, and a textual heuristic
// fallback, arbitrated into a single verdict.
package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/network-lumen/gateway-agent/internal/gateway"
	"github.com/network-lumen/gateway-agent/internal/types"
)

// DetectorVersion is baked into every verdict; bumping it forces the type
// crawler to re-detect every present row (invariant 6).
const DetectorVersion = "v1"

// Config controls sampling and classifier behavior.
type Config struct {
	SampleBytes           int64
	MaxTotalBytes          int64
	ExternalClassifierURL string
}

// Detector runs the detection pipeline against the gateway client.
type Detector struct {
	gw         *gateway.Client
	cfg        Config
	classifier *classifierClient
}

// New builds a Detector. gw fetches sample bytes; cfg controls sampling caps
// and the optional external classifier endpoint.
func New(gw *gateway.Client, cfg Config) *Detector {
	var cc *classifierClient
	if cfg.ExternalClassifierURL != "" {
		cc = newClassifierClient(cfg.ExternalClassifierURL, 15*time.Second)
	}
	return &Detector{gw: gw, cfg: cfg, classifier: cc}
}

// Verdict is the detector's output (spec.md §4.3).
type Verdict struct {
	CID             string
	MIME            string
	ExtGuess        string
	Kind            types.Kind
	Confidence      float64
	Source          types.DetectionSource
	Signals         types.Signals
	DetectorVersion string
	IndexedAtMs     int64
	Size            *int64
	Disagreement    bool
	Warnings        []string
}

// Detect runs the full pipeline for one CID.
func (d *Detector) Detect(ctx context.Context, now time.Time, cid string, sizeHint *int64) (*Verdict, error) {
	v := &Verdict{
		CID:             cid,
		Kind:            types.KindUnknown,
		DetectorVersion: DetectorVersion,
		IndexedAtMs:     types.NowMs(now),
	}

	head, err := d.gw.Head(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHeadProbeFailed, err)
	}
	if head.TotalLength > 0 {
		size := head.TotalLength
		v.Size = &size
	} else if sizeHint != nil {
		v.Size = sizeHint
	}
	v.Signals.HTTP = &types.HTTPSignal{Status: head.Status, TotalLength: head.TotalLength}

	// Step 1: HEAD short-circuit for large media (spec.md §4.3 step 1).
	if isExcludedMedia(head.ContentType) {
		v.Kind = types.KindUnknown
		v.Source = types.DetectionHead
		v.Confidence = 0.7
		v.Warnings = append(v.Warnings, "excluded_media")
		return v, nil
	}

	// Step 2: sampling.
	sample, rangeIgnored, err := d.sample(ctx, cid, v.Size)
	if err != nil {
		return nil, fmt.Errorf("sampling: %w", err)
	}
	if rangeIgnored {
		v.Signals.HTTP.RangeIgnored = true
	}

	// Step 3: magic detection.
	magic := detectMagic(sample.head)
	v.Signals.Magic = &types.MagicSignal{MIME: magic.MIME, Confidence: magic.Confidence}
	if magic.Confidence >= 0.95 && magic.MIME != genericZipMIME {
		v.MIME = magic.MIME
		v.Kind = kindForMIME(magic.MIME)
		v.Confidence = magic.Confidence
		v.Source = types.DetectionMagic
		return v, nil
	}

	// Step 4: container sniff.
	container := sniffContainer(sample)
	if container != nil {
		v.Signals.Container = container
		if container.Confidence >= 0.85 {
			v.MIME = container.MIME
			v.ExtGuess = container.ExtGuess
			v.Kind = kindForContainer(container.Container)
			v.Confidence = container.Confidence
			v.Source = types.DetectionContainer
			v.Disagreement = disagree(magic.MIME, kindForMIME(magic.MIME), container.MIME, v.Kind)
			return v, nil
		}
	}

	// Step 5: optional external classifier.
	if d.classifier != nil {
		ext, err := d.classifier.classify(ctx, sample.head, sample.tail)
		if err == nil && ext != nil {
			v.Signals.ExternalClassifier = ext
			v.MIME = ext.MIME
			v.ExtGuess = ext.Ext
			if ext.Kind != "" {
				v.Kind = types.Kind(ext.Kind)
			} else {
				v.Kind = kindForMIME(ext.MIME)
			}
			v.Confidence = ext.Confidence
			v.Source = types.DetectionExternal
			return v, nil
		}
	}

	// Step 6: textual heuristic fallback.
	heuristic := detectHeuristic(sample.head)
	v.Signals.Heuristic = &heuristic
	if heuristic.PDFObjectScore >= 4 {
		v.MIME = "application/pdf"
		v.ExtGuess = "pdf"
		v.Kind = types.KindDoc
		v.Confidence = heuristic.Confidence
		v.Source = types.DetectionHeuristic
		v.Disagreement = magic.MIME != "" && magic.MIME != "application/pdf"
		return v, nil
	}
	if heuristic.TextLike {
		v.MIME = "text/plain"
		v.Kind = types.KindText
		v.Confidence = heuristic.Confidence
		v.Source = types.DetectionHeuristic
		return v, nil
	}

	// Nothing confident matched; best-effort fall back to the magic verdict.
	v.MIME = magic.MIME
	v.Kind = kindForMIME(magic.MIME)
	v.Confidence = magic.Confidence
	v.Source = types.DetectionMagic
	return v, nil
}

func disagree(mimeA string, kindA types.Kind, mimeB string, kindB types.Kind) bool {
	return mimeA != "" && mimeB != "" && (mimeA != mimeB) && (kindA != kindB)
}
