package detect

import (
	"bytes"

	"github.com/network-lumen/gateway-agent/internal/types"
)

const heuristicSampleCap = 4096

var pdfObjectTokens = [][]byte{
	[]byte("obj"), []byte("endobj"), []byte("xref"), []byte("trailer"),
	[]byte("stream"), []byte("endstream"),
}

var pdfDictionaryTokens = [][]byte{
	[]byte("FlateDecode"), []byte("XObject"), []byte("ColorSpace"),
	[]byte("BitsPerComponent"), []byte("MediaBox"), []byte("CropBox"),
	[]byte("Resources"), []byte("Font"),
}

// detectHeuristic is the textual fallback of spec.md §4.3 step 6: a
// printable-ratio text check, plus a PDF-object-stream rescue for content
// whose magic/container signals missed an internally-structured PDF.
func detectHeuristic(head []byte) types.HeuristicSignal {
	sample := head
	if len(sample) > heuristicSampleCap {
		sample = sample[:heuristicSampleCap]
	}

	printable := 0
	hasNUL := false
	for _, b := range sample {
		if b == 0 {
			hasNUL = true
		}
		if (b >= 0x20 && b <= 0x7E) || b == '\n' || b == '\r' || b == '\t' {
			printable++
		}
	}
	var frac float64
	if len(sample) > 0 {
		frac = float64(printable) / float64(len(sample))
	}
	textLike := !hasNUL && frac >= 0.8

	objScore := 0
	for _, tok := range pdfObjectTokens {
		if bytes.Contains(head, tok) {
			objScore++
		}
	}
	dictScore := 0
	for _, tok := range pdfDictionaryTokens {
		if bytes.Contains(head, tok) {
			dictScore++
		}
	}
	hasStream := bytes.Contains(head, []byte("stream")) && bytes.Contains(head, []byte("endstream"))
	pdfScore := 0
	if objScore >= 4 || (dictScore >= 3 && hasStream) {
		pdfScore = 4
	}

	confidence := 0.5
	if textLike {
		confidence = 0.55
	}
	if pdfScore >= 4 {
		confidence = 0.8
	}

	return types.HeuristicSignal{
		TextLike:       textLike,
		PrintableFrac:  frac,
		PDFObjectScore: pdfScore,
		Confidence:     confidence,
	}
}
