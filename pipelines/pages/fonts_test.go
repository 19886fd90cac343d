package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFontDescriptor(t *testing.T) {
	tests := []struct {
		desc string
		want FontConfig
	}{
		{"Georgia, serif", FontConfig{"Georgia, serif", "Arial, sans-serif", StyleClassic}},
		{"Georgia, serif | Verdana", FontConfig{"Georgia, serif", "Verdana", StyleClassic}},
		{" 'Roboto' | 'Lato' | tech ", FontConfig{"'Roboto'", "'Lato'", StyleTech}},
		{"A | B | ", FontConfig{"A", "B", StyleClassic}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFontDescriptor(tt.desc), tt.desc)
	}
}

func TestSizingForFallsBackToClassic(t *testing.T) {
	assert.Equal(t, SizingFor(StyleClassic), SizingFor("unknown"))
	assert.Equal(t, "2.8rem", SizingFor(StyleModern).H1)
}

func TestSelectFontUsesPaletteWhenNoDescriptors(t *testing.T) {
	rng := NewSeededRand(11)
	styles := map[string]bool{}
	for _, fc := range DefaultPalette {
		styles[fc.Style] = true
	}
	for i := 0; i < 50; i++ {
		fc := SelectFont(rng, nil, false)
		assert.True(t, styles[fc.Style])
	}
}

func TestFontLinks(t *testing.T) {
	assert.Empty(t, FontLinks(FontCSS(DefaultPalette[0], false), false))
	assert.Contains(t, FontLinks(FontCSS(DefaultPalette[1], false), false), "family=Open+Sans")
	assert.Contains(t, FontLinks("", true), "family=Poppins")
}
