package recall

import (
	"regexp"
	"strings"
)

const maxKeywords = 8

var (
	hanRunPattern   = regexp.MustCompile(`\p{Han}{2,6}`)
	asciiWordPattern = regexp.MustCompile(`[a-zA-Z0-9]{3,}`)
)

// stopWords covers the filler tokens that dominate chat text in both
// scripts. Keeping it small is deliberate; aggressive lists strip the very
// nouns recall needs.
var stopWords = map[string]struct{}{
	"你好": {}, "谢谢": {}, "再见": {}, "请问": {}, "可以": {},
	"这个": {}, "那个": {}, "什么": {}, "怎么": {}, "为什么": {},
	"因为": {}, "所以": {}, "但是": {},
	"我们": {}, "你们": {}, "他们": {}, "她们": {}, "它们": {},
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {},
	"this": {}, "you": {}, "are": {}, "was": {}, "have": {},
	"what": {}, "about": {}, "not": {}, "but": {},
}

// ExtractKeywords pulls candidate search terms out of free text: runs of 2
// to 6 Han characters plus Latin words of 3+ characters, lowercased, with
// stop words dropped. Order of first appearance is preserved and the result
// is capped at 8 terms.
func ExtractKeywords(text string) []string {
	if text == "" {
		return nil
	}

	var words []string
	words = append(words, hanRunPattern.FindAllString(text, -1)...)
	for _, w := range asciiWordPattern.FindAllString(text, -1) {
		words = append(words, strings.ToLower(w))
	}

	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
