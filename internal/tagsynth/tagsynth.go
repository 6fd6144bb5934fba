// Package tagsynth implements the deterministic tag synthesizer (spec.md
// §4.5): a pure function of detection output and size, producing a
// low-cardinality, order-stable tag list.
package tagsynth

import (
	"sort"
	"strings"

	"github.com/network-lumen/gateway-agent/internal/types"
)

// Input is the subset of a detection verdict tag synthesis needs.
type Input struct {
	Kind       types.Kind
	MIME       string
	ExtGuess   string
	Source     types.DetectionSource
	Confidence float64
	SizeBytes  *int64
	Container  string // "zip" | "pdf" | "car" | ""
}

// officeExtToSubtype maps ZIP-family office extensions to a subtype tag,
// grounded on the container sniffer's docx/xlsx/pptx/epub/apk classification.
var officeExtToSubtype = map[string]string{
	"docx": "office:word",
	"xlsx": "office:excel",
	"pptx": "office:powerpoint",
}

// Synthesize is pure: same Input always yields the same tag slice in the
// same order (spec.md §4.5 "must be pure", "Order-stable").
func Synthesize(in Input) []string {
	var tags []string

	tags = append(tags, "kind:"+string(orUnknownKind(in.Kind)))
	tags = append(tags, "category:"+category(in.Kind))

	if in.MIME != "" {
		tags = append(tags, "mime:"+in.MIME)
	}
	if in.ExtGuess != "" {
		tags = append(tags, "ext:"+in.ExtGuess)
	}
	if in.Source != "" {
		tags = append(tags, "detected_by:"+string(in.Source))
	}

	tags = append(tags, "confidence:"+confidenceBand(in.Confidence))

	if in.SizeBytes != nil {
		tags = append(tags, "size_bucket:"+sizeBucket(*in.SizeBytes))
	}

	if in.Container != "" {
		tags = append(tags, "container:"+in.Container)
	}
	if subtype, ok := officeExtToSubtype[in.ExtGuess]; ok {
		tags = append(tags, subtype)
	}
	if in.ExtGuess == "epub" {
		tags = append(tags, "ebook:epub")
	}

	tags = append(tags, needsHints(in)...)

	return tags
}

func orUnknownKind(k types.Kind) types.Kind {
	if k == "" {
		return types.KindUnknown
	}
	return k
}

// category collapses the fine-grained kind into the four buckets spec.md
// §4.5 names.
func category(k types.Kind) string {
	switch k {
	case types.KindImage, types.KindVideo, types.KindAudio:
		return "media"
	case types.KindHTML, types.KindText, types.KindDoc:
		return "document"
	case types.KindArchive, types.KindPackage:
		return "package"
	default:
		return "unknown"
	}
}

// confidenceBand applies the 0.5/0.8 bands.
func confidenceBand(c float64) string {
	switch {
	case c >= 0.8:
		return "high"
	case c >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// sizeBucket maps a byte size to a bucket starting at 1 KiB: xs <1KiB,
// s <2KiB, m <1MiB, l <16MiB, xl <256MiB, xxl otherwise. The early buckets
// are tight (useful for tiny files) and the later ones coarse.
const (
	kib = int64(1024)
	mib = kib * 1024
)

func sizeBucket(size int64) string {
	switch {
	case size < kib:
		return "xs"
	case size < 2*kib:
		return "s"
	case size < mib:
		return "m"
	case size < 16*mib:
		return "l"
	case size < 256*mib:
		return "xl"
	default:
		return "xxl"
	}
}

// needsHints flags rows that still want downstream enrichment.
func needsHints(in Input) []string {
	var hints []string
	if in.MIME == "" || in.ExtGuess == "" {
		hints = append(hints, "needs:metadata")
	}
	if in.Kind == types.KindImage {
		hints = append(hints, "needs:ai_tags")
	}
	sort.Strings(hints)
	return hints
}

// ContainerFromSignals maps a container-sniff name to the container tag:
// zip, pdf and car (any case) come back lowercased, anything else as ""
// (spec.md §4.3 container family).
func ContainerFromSignals(container string) string {
	switch strings.ToLower(container) {
	case "zip", "pdf", "car":
		return strings.ToLower(container)
	default:
		return ""
	}
}
