package pages

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplates(t *testing.T) {
	src := `
stray line before any marker
[lorem]
one
two

[Base]
{keyword} rises
[NOTES]
still base
[TAIL]
#{}
[FONTS]
Georgia, serif | Arial, sans-serif | classic
`
	ts, err := ParseTemplates(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two"}, ts.Lorem)
	assert.Equal(t, []string{"{keyword} rises", "still base"}, ts.Base)
	assert.Equal(t, []string{"#{}"}, ts.Tail)
	assert.Equal(t, []string{"Georgia, serif | Arial, sans-serif | classic"}, ts.Fonts)
	require.NoError(t, ts.Validate())
}

func TestTemplateSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		ts      TemplateSet
		wantErr string
	}{
		{"undersized lorem", TemplateSet{Lorem: []string{"a"}, Base: []string{"b"}, Tail: []string{"t"}}, "LOREM"},
		{"missing base", TemplateSet{Lorem: []string{"a", "b"}, Tail: []string{"t"}}, "BASE"},
		{"missing tail", TemplateSet{Lorem: []string{"a", "b"}, Base: []string{"b"}}, "TAIL"},
		{"fonts optional", TemplateSet{Lorem: []string{"a", "b"}, Base: []string{"b"}, Tail: []string{"t"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithExtraFillerDoesNotMutate(t *testing.T) {
	ts := &TemplateSet{Lorem: []string{"a"}}
	out := ts.WithExtraFiller([]string{"b", "c"})
	assert.Equal(t, []string{"a"}, ts.Lorem)
	assert.Equal(t, []string{"a", "b", "c"}, out.Lorem)
}

func TestLoadTemplatesMissingFile(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestLoadStylesheet(t *testing.T) {
	dir := t.TempDir()

	css, err := LoadStylesheet(filepath.Join(dir, "missing.css"))
	require.NoError(t, err)
	assert.Empty(t, css)

	css, err = LoadStylesheet("")
	require.NoError(t, err)
	assert.Empty(t, css)

	path := filepath.Join(dir, "s.css")
	require.NoError(t, os.WriteFile(path, []byte("h1 { color: red; }"), 0644))
	css, err = LoadStylesheet(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(css, "<style>"))
	assert.Contains(t, css, "h1 { color: red; }")
}
