package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMagicPNG(t *testing.T) {
	head := []byte("\x89PNG\r\n\x1a\nrest of file")
	res := detectMagic(head)
	assert.Equal(t, "image/png", res.MIME)
	assert.InDelta(t, 0.98, res.Confidence, 0.001)
}

func TestDetectMagicWebP(t *testing.T) {
	head := append([]byte("RIFF\x00\x00\x00\x00WEBP"), []byte("VP8 ")...)
	res := detectMagic(head)
	assert.Equal(t, "image/webp", res.MIME)
}

func TestDetectMagicRIFFWithoutWebP(t *testing.T) {
	// RIFF prefix without a WEBP fourcc at offset 8 isn't a recognized
	// signature (the table's RIFF entry is reserved for the WEBP special
	// case above and skipped in the generic scan), so it falls all the way
	// through to the generic octet-stream default.
	head := []byte("RIFF\x00\x00\x00\x00AVI ")
	res := detectMagic(head)
	assert.Equal(t, "application/octet-stream", res.MIME)
}

func TestDetectMagicZipGetsLowerConfidence(t *testing.T) {
	res := detectMagic([]byte("PK\x03\x04rest"))
	assert.Equal(t, "application/zip", res.MIME)
	assert.InDelta(t, 0.9, res.Confidence, 0.001)
}

func TestDetectMagicUnknownFallsBackToOctetStream(t *testing.T) {
	res := detectMagic([]byte("not a known signature"))
	assert.Equal(t, "application/octet-stream", res.MIME)
	assert.InDelta(t, 0.6, res.Confidence, 0.001)
}
