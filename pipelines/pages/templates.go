package pages

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Template section markers.
const (
	SectionLorem = "LOREM"
	SectionBase  = "BASE"
	SectionTail  = "TAIL"
	SectionFonts = "FONTS"
)

// TemplateSet holds the text fragments pages are assembled from.
type TemplateSet struct {
	Lorem []string // filler sentences
	Base  []string // title prefixes, may contain {keyword}
	Tail  []string // title suffixes, may contain {} or {index}
	Fonts []string // "primary | secondary | style"
}

// LoadTemplates reads a template source file.
func LoadTemplates(path string) (*TemplateSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()
	return ParseTemplates(f)
}

// ParseTemplates reads bracketed sections, one fragment per line. Blank lines are
// skipped, markers are case-insensitive, unknown markers are ignored and lines
// before the first known marker are dropped.
func ParseTemplates(r io.Reader) (*TemplateSet, error) {
	ts := &TemplateSet{}
	sections := map[string]*[]string{
		SectionLorem: &ts.Lorem,
		SectionBase:  &ts.Base,
		SectionTail:  &ts.Tail,
		SectionFonts: &ts.Fonts,
	}

	var current *[]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.ToUpper(strings.TrimSpace(line[1 : len(line)-1]))
			if dst, ok := sections[name]; ok {
				current = dst
			}
			continue
		}
		if current != nil {
			*current = append(*current, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return ts, nil
}

// Validate reports template groups too small to build a page from.
func (ts *TemplateSet) Validate() error {
	if len(ts.Lorem) < 2 {
		return fmt.Errorf("[%s] needs at least 2 fragments, got %d", SectionLorem, len(ts.Lorem))
	}
	if len(ts.Base) == 0 {
		return fmt.Errorf("[%s] has no fragments", SectionBase)
	}
	if len(ts.Tail) == 0 {
		return fmt.Errorf("[%s] has no fragments", SectionTail)
	}
	return nil
}

// WithExtraFiller returns a copy whose filler group also contains extra.
func (ts *TemplateSet) WithExtraFiller(extra []string) *TemplateSet {
	out := *ts
	out.Lorem = append(append([]string{}, ts.Lorem...), extra...)
	return &out
}

// LoadStylesheet returns the stylesheet wrapped in a <style> block, or "" when the
// file is missing.
func LoadStylesheet(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return "<style>\n" + string(data) + "\n</style>\n", nil
}
