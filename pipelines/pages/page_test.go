package pages

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTitle(t *testing.T) {
	tests := []struct {
		base, tail string
		want       string
	}{
		{"{keyword} today", "Part {}", "launch today — Part 3"},
		{"All about {keyword}", "Edition {index}", "All about launch — Edition 3"},
		{"Plain", "No. {0}", "Plain — No. 3"},
		{"Plain", "Fixed", "Plain — Fixed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildTitle(tt.base, tt.tail, "launch", 3))
	}
}

func TestRandomParagraphSamplesDistinctFragments(t *testing.T) {
	lorem := []string{"alpha.", "bravo.", "charlie.", "delta.", "echo."}
	rng := NewSeededRand(7)

	for i := 0; i < 200; i++ {
		parts := strings.Split(RandomParagraph(rng, lorem), " ")
		require.GreaterOrEqual(t, len(parts), 2)
		require.LessOrEqual(t, len(parts), 4)

		seen := map[string]bool{}
		for _, p := range parts {
			assert.False(t, seen[p], "fragment %q repeated", p)
			seen[p] = true
		}
	}
}

func TestRandomParagraphCapsAtPoolSize(t *testing.T) {
	rng := NewSeededRand(1)
	for i := 0; i < 50; i++ {
		parts := strings.Split(RandomParagraph(rng, []string{"a", "b"}), " ")
		assert.Len(t, parts, 2)
	}
}

func TestRandomParagraphsCount(t *testing.T) {
	rng := NewSeededRand(3)
	lorem := []string{"a", "b", "c"}
	for i := 0; i < 100; i++ {
		n := len(RandomParagraphs(rng, lorem))
		assert.GreaterOrEqual(t, n, 4)
		assert.LessOrEqual(t, n, 7)
	}
}

func TestPageHTMLLayout(t *testing.T) {
	p := Page{
		Index:      1,
		Title:      "Launch day — Part 1",
		Keyword:    "launch",
		Paragraphs: []string{"first", "second"},
		Image:      "cat.jpg",
		Font:       DefaultPalette[0],
		Stylesheet: "<style>\nbody{}\n</style>\n",
	}
	out := p.HTML()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<h1>Launch day — Part 1</h1>")
	assert.Contains(t, out, "Written by AI • Keyword: <b>launch</b>")
	assert.Contains(t, out, `src="../images/cat.jpg"`)
	assert.Contains(t, out, "<p>first</p><p>second</p>")
	assert.Contains(t, out, "Font Configuration: classic style")
	assert.Less(t, strings.Index(out, "<div class='tagline'>"), strings.Index(out, "<h1>"))
}
