package tagsynth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/network-lumen/gateway-agent/internal/tagsynth"
	"github.com/network-lumen/gateway-agent/internal/types"
)

func int64p(v int64) *int64 { return &v }

func TestSynthesizeImage(t *testing.T) {
	tags := tagsynth.Synthesize(tagsynth.Input{
		Kind:       types.KindImage,
		MIME:       "image/png",
		ExtGuess:   "png",
		Source:     types.DetectionMagic,
		Confidence: 0.98,
		SizeBytes:  int64p(4096),
	})

	assert.Equal(t, []string{
		"kind:image",
		"category:media",
		"mime:image/png",
		"ext:png",
		"detected_by:magic",
		"confidence:high",
		"size_bucket:m",
		"needs:ai_tags",
	}, tags)
}

func TestSynthesizeUnknownDefaults(t *testing.T) {
	tags := tagsynth.Synthesize(tagsynth.Input{})

	assert.Equal(t, []string{
		"kind:unknown",
		"category:unknown",
		"confidence:low",
		"needs:metadata",
	}, tags)
}

func TestSynthesizeOfficeSubtype(t *testing.T) {
	tags := tagsynth.Synthesize(tagsynth.Input{
		Kind:       types.KindDoc,
		MIME:       "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		ExtGuess:   "docx",
		Source:     types.DetectionContainer,
		Confidence: 0.9,
		Container:  "zip",
	})

	assert.Contains(t, tags, "container:zip")
	assert.Contains(t, tags, "office:word")
	assert.NotContains(t, tags, "needs:metadata")
}

func TestSynthesizeEpub(t *testing.T) {
	tags := tagsynth.Synthesize(tagsynth.Input{
		Kind:     types.KindDoc,
		MIME:     "application/epub+zip",
		ExtGuess: "epub",
		Source:   types.DetectionContainer,
	})

	assert.Contains(t, tags, "ebook:epub")
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	in := tagsynth.Input{
		Kind:       types.KindHTML,
		MIME:       "text/html",
		ExtGuess:   "html",
		Source:     types.DetectionHeuristic,
		Confidence: 0.6,
		SizeBytes:  int64p(2048),
	}
	first := tagsynth.Synthesize(in)
	second := tagsynth.Synthesize(in)
	assert.Equal(t, first, second)
}

func TestSizeBucketBoundaries(t *testing.T) {
	cases := []struct {
		size   int64
		bucket string
	}{
		{0, "xs"},
		{1023, "xs"},
		{1024, "s"},
		{2047, "s"},
		{2048, "m"},
		{1024*1024 - 1, "m"},
		{1024 * 1024, "l"},
		{16*1024*1024 - 1, "l"},
		{16 * 1024 * 1024, "xl"},
		{256*1024*1024 - 1, "xl"},
		{256 * 1024 * 1024, "xxl"},
	}
	for _, c := range cases {
		tags := tagsynth.Synthesize(tagsynth.Input{SizeBytes: int64p(c.size)})
		assert.Contains(t, tags, "size_bucket:"+c.bucket, "size %d", c.size)
	}
}

func TestConfidenceBands(t *testing.T) {
	assert.Contains(t, tagsynth.Synthesize(tagsynth.Input{Confidence: 0.79}), "confidence:medium")
	assert.Contains(t, tagsynth.Synthesize(tagsynth.Input{Confidence: 0.8}), "confidence:high")
	assert.Contains(t, tagsynth.Synthesize(tagsynth.Input{Confidence: 0.49}), "confidence:low")
	assert.Contains(t, tagsynth.Synthesize(tagsynth.Input{Confidence: 0.5}), "confidence:medium")
}

func TestContainerFromSignals(t *testing.T) {
	assert.Equal(t, "zip", tagsynth.ContainerFromSignals("ZIP"))
	assert.Equal(t, "pdf", tagsynth.ContainerFromSignals("pdf"))
	assert.Equal(t, "car", tagsynth.ContainerFromSignals("CAR"))
	assert.Equal(t, "", tagsynth.ContainerFromSignals("tar"))
	assert.Equal(t, "", tagsynth.ContainerFromSignals(""))
}
