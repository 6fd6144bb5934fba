package analyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/network-lumen/gateway-agent/internal/analyze"
)

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	counts := analyze.Tokenize("The cat sat on a mat and the dog ran", "en")
	assert.NotContains(t, counts, "the")
	assert.NotContains(t, counts, "and")
	assert.NotContains(t, counts, "on")
	assert.NotContains(t, counts, "a")
	assert.Equal(t, 1, counts["cat"])
	assert.Equal(t, 1, counts["dog"])
	assert.Equal(t, 1, counts["ran"])
}

func TestTokenizeFoldsAccents(t *testing.T) {
	counts := analyze.Tokenize("café café CAFE", "en")
	assert.Equal(t, 3, counts["cafe"])
}

func TestTokenizeFrenchStopwords(t *testing.T) {
	counts := analyze.Tokenize("les chats dans la maison avec des amis", "fr")
	assert.NotContains(t, counts, "les")
	assert.NotContains(t, counts, "dans")
	assert.NotContains(t, counts, "avec")
	assert.NotContains(t, counts, "des")
	assert.Contains(t, counts, "chats")
	assert.Contains(t, counts, "maison")
	assert.Contains(t, counts, "amis")
}

func TestTokenizeRejectsNonAlphaTokens(t *testing.T) {
	counts := analyze.Tokenize("abc123 123456 hello-world under_score", "en")
	assert.NotContains(t, counts, "abc123")
	assert.NotContains(t, counts, "123456")
	assert.Contains(t, counts, "hello")
	assert.Contains(t, counts, "world")
	assert.Contains(t, counts, "under")
	assert.Contains(t, counts, "score")
}

func TestTopicsDropsGenericAndLimitsToFive(t *testing.T) {
	counts := map[string]int{
		"file": 100, "data": 90, "content": 80,
		"alpha": 10, "beta": 9, "gamma": 8, "delta": 7, "epsilon": 6, "zeta": 5,
	}
	topics := analyze.Topics(counts)
	assert.Len(t, topics, 5)
	assert.NotContains(t, topics, "file")
	assert.NotContains(t, topics, "data")
	assert.NotContains(t, topics, "content")
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta", "epsilon"}, topics)
}

func TestTopicsTieBreaksByTokenAscending(t *testing.T) {
	counts := map[string]int{"zebra": 5, "apple": 5, "mango": 5}
	topics := analyze.Topics(counts)
	assert.Equal(t, []string{"apple", "mango", "zebra"}, topics)
}
