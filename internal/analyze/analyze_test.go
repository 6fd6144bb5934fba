package analyze_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/analyze"
	"github.com/network-lumen/gateway-agent/internal/tagger"
	"github.com/network-lumen/gateway-agent/internal/types"
)

type stubTagger struct {
	textResult  *tagger.Result
	imageResult *tagger.Result
}

func (s stubTagger) TagText(ctx context.Context, text string) (*tagger.Result, error) {
	return s.textResult, nil
}

func (s stubTagger) TagImage(ctx context.Context, cid string, d tagger.DetectionInfo) (*tagger.Result, error) {
	return s.imageResult, nil
}

func TestAnalyzeUnknownKindReturnsNil(t *testing.T) {
	a := analyze.New(nil)
	res, err := a.Analyze(context.Background(), analyze.Input{Kind: types.KindArchive})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestAnalyzeTextLikeDetectsSubtitleTrack(t *testing.T) {
	a := analyze.New(nil)
	body := "1\n00:00:01,000 --> 00:00:02,000\nhello world\n"
	res, err := a.Analyze(context.Background(), analyze.Input{Kind: types.KindText, Body: []byte(body)})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "video", res.ContentClass)
}

func TestAnalyzeTextLikePlainDoc(t *testing.T) {
	a := analyze.New(nil)
	res, err := a.Analyze(context.Background(), analyze.Input{Kind: types.KindDoc, Body: []byte("just plain document text")})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "doc", res.ContentClass)
}

func TestAnalyzeImageUsesTaggerMerge(t *testing.T) {
	st := stubTagger{imageResult: &tagger.Result{
		Topics: []string{"sunset"},
		Tokens: map[string]float64{"beach": 2},
	}}
	a := analyze.New(st)
	res, err := a.Analyze(context.Background(), analyze.Input{
		Kind: types.KindImage, Filename: "beach-sunset.png",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "image", res.ContentClass)
	assert.Contains(t, res.Topics, "sunset")
	// filename tokenization contributes 1, the tagger's score merges in
	// additively on top (spec.md §4.4 "additive count").
	assert.Equal(t, 3, res.Tokens["beach"])
}

func TestAnalyzeVideoDerivesBaseTokens(t *testing.T) {
	a := analyze.New(nil)
	res, err := a.Analyze(context.Background(), analyze.Input{
		Kind: types.KindVideo, MIME: "video/mp4", ExtGuess: "mp4", Filename: "trailer.mp4",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "video", res.ContentClass)
	assert.Equal(t, 1, res.Tokens["video"])
	assert.Equal(t, 1, res.Tokens["mp4"])
}
