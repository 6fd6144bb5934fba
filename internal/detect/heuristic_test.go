package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectHeuristicPlainText(t *testing.T) {
	sig := detectHeuristic([]byte("the quick brown fox jumps over the lazy dog\n"))
	assert.True(t, sig.TextLike)
	assert.InDelta(t, 0.55, sig.Confidence, 0.001)
}

func TestDetectHeuristicBinaryWithNUL(t *testing.T) {
	sig := detectHeuristic([]byte{0x00, 0x01, 0x02, 'a', 'b', 'c'})
	assert.False(t, sig.TextLike)
}

func TestDetectHeuristicPDFObjectRescue(t *testing.T) {
	body := strings.Join([]string{
		"1 0 obj", "<< /Type /Catalog >>", "endobj",
		"2 0 obj", "stream", "endstream", "endobj",
		"xref", "trailer",
	}, "\n")
	sig := detectHeuristic([]byte(body))
	assert.GreaterOrEqual(t, sig.PDFObjectScore, 4)
	assert.InDelta(t, 0.8, sig.Confidence, 0.001)
}

func TestDetectHeuristicEmptySample(t *testing.T) {
	sig := detectHeuristic(nil)
	assert.False(t, sig.TextLike)
	assert.Equal(t, 0.0, sig.PrintableFrac)
}

func TestKindForMIME(t *testing.T) {
	cases := map[string]string{
		"":                        "unknown",
		"image/png":               "image",
		"text/html":               "html",
		"text/plain":              "text",
		"application/pdf":         "doc",
		"application/epub+zip":    "doc",
		"video/mp4":               "video",
		"audio/mpeg":              "audio",
		"application/zip":         "archive",
		"application/vnd.ipld.car": "ipld",
		"application/x-made-up":   "unknown",
	}
	for mime, want := range cases {
		assert.Equal(t, want, string(kindForMIME(mime)), "mime %q", mime)
	}
}

func TestIsExcludedMedia(t *testing.T) {
	assert.True(t, isExcludedMedia("video/mp4"))
	assert.True(t, isExcludedMedia("AUDIO/OGG"))
	assert.False(t, isExcludedMedia("image/png"))
	assert.False(t, isExcludedMedia(""))
}
