package store

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
)

var plainText = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Tokenize turns free text into the distinct, case-folded keywords the
// text index is keyed by. Markup is stripped first.
func Tokenize(texts ...string) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{})
	var tokens []string

	for _, text := range texts {
		if text == "" {
			continue
		}
		plain := html.UnescapeString(plainText.Sanitize(text))
		words := strings.FieldsFunc(fold.String(plain), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func indexTokens(title, content string, tags []string) []string {
	texts := append([]string{title, content}, tags...)
	return Tokenize(texts...)
}
