// Package analyze implements the content analyzer (spec.md §4.4):
// kind-dispatched extraction of tokens/topics/title/description, delegating
// image and long-text enrichment to the tagger interface.
package analyze

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var tokenShape = regexp.MustCompile(`^[a-z]+$`)

var stopwordsEN = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "had": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "day": true, "get": true,
	"has": true, "him": true, "his": true, "how": true, "man": true, "new": true,
	"now": true, "old": true, "see": true, "two": true, "way": true, "who": true,
	"boy": true, "did": true, "its": true, "let": true, "put": true, "say": true,
	"she": true, "too": true, "use": true, "that": true, "with": true, "this": true,
	"from": true, "have": true, "more": true, "will": true, "your": true, "they": true,
	"their": true, "what": true, "about": true,
}

var stopwordsFR = map[string]bool{
	"les": true, "des": true, "une": true, "dans": true, "pour": true, "sur": true,
	"avec": true, "est": true, "que": true, "qui": true, "par": true, "pas": true,
	"plus": true, "ont": true, "sont": true, "cette": true, "vous": true, "nous": true,
}

// genericTopicTokens are dropped when deriving topics (spec.md §4.4 "drop
// generic {file, data, content}").
var genericTopicTokens = map[string]bool{"file": true, "data": true, "content": true}

const maxTokensPerSource = 256

// Tokenize implements the full pipeline: NFKD de-accent → ASCII fold →
// lowercase → strip non-[a-z0-9] → split on whitespace; keep tokens of
// length >= 3 matching ^[a-z]+$; drop stopwords; cap at 256 tokens.
func Tokenize(text string, lang string) map[string]int {
	folded := foldASCII(text)
	folded = strings.ToLower(folded)

	stop := stopwordsEN
	if lang == "fr" {
		stop = stopwordsFR
	}

	counts := make(map[string]int)
	total := 0
	for _, field := range strings.FieldsFunc(folded, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if total >= maxTokensPerSource {
			break
		}
		if len(field) < 3 || !tokenShape.MatchString(field) {
			continue
		}
		if stop[field] {
			continue
		}
		counts[field]++
		total++
	}
	return counts
}

// foldASCII applies Unicode NFKD decomposition then strips combining marks,
// so accented characters fold to their base ASCII letter (spec.md §4.4).
func foldASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

type tokenCount struct {
	token string
	count int
}

// Topics derives up to 5 topics from token counts: sort by (count desc,
// token asc), drop generic tokens, take first five (spec.md §4.4).
func Topics(counts map[string]int) []string {
	items := make([]tokenCount, 0, len(counts))
	for t, c := range counts {
		if genericTopicTokens[t] {
			continue
		}
		items = append(items, tokenCount{t, c})
	}
	sortByCountDescTokenAsc(items)

	var out []string
	for _, it := range items {
		out = append(out, it.token)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func sortByCountDescTokenAsc(items []tokenCount) {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 {
			a, b := items[j], items[j-1]
			if a.count > b.count || (a.count == b.count && a.token < b.token) {
				items[j], items[j-1] = items[j-1], items[j]
				j--
			} else {
				break
			}
		}
	}
}
