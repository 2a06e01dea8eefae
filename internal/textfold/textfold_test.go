package textfold

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"punctuation", "100 Main St., Suite #4", []string{"100", "main", "st", "suite", "4"}},
		{"initialism", "Acme L.L.C.", []string{"acme", "llc"}},
		{"apostrophe", "Smith's Garage", []string{"smiths", "garage"}},
		{"ampersand", "A&B Hauling", []string{"a", "b", "hauling"}},
		{"accents", "Café Diesel", []string{"cafe", "diesel"}},
		{"blank", "   ", nil},
		{"only punctuation", "--", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "new hope", Collapse("  New   HOPE "))
	assert.Equal(t, "", Collapse(""))
}
