package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []string
	}{
		{"folds case", []string{"Hello WORLD"}, []string{"hello", "world"}},
		{"strips markup", []string{"<p>one</p><p>two</p>"}, []string{"one", "two"}},
		{"unescapes entities", []string{"fish &amp; chips"}, []string{"fish", "chips"}},
		{"dedupes across texts", []string{"go go", "Go"}, []string{"go"}},
		{"keeps digits", []string{"http2 and 3"}, []string{"http2", "and", "3"}},
		{"punctuation only", []string{"?!..."}, nil},
		{"unicode letters", []string{"Café ÉTÉ"}, []string{"café", "été"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.texts...))
		})
	}
}
