package pages

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Tagline is the fixed introductory line of every page.
const Tagline = "The Daily Post — your dummy-pages-generated news used for entertainment"

// Page is one synthesized document.
type Page struct {
	Index      int
	Path       string
	Title      string
	Keyword    string
	Paragraphs []string
	Image      string // file name inside the run image directory, "" when none
	Font       FontConfig
	SingleFont bool
	Stylesheet string // inlined <style> block from the style source
}

// Rand is the random source used for every randomized choice.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Perm(n int) []int
}

// BuildTitle combines a prefix and a suffix. {keyword} in the prefix is replaced by
// the keyword; {}, {0} or {index} in the suffix by the page index.
func BuildTitle(base, tail, keyword string, index int) string {
	prefix := strings.ReplaceAll(base, "{keyword}", keyword)
	idx := strconv.Itoa(index)
	suffix := strings.NewReplacer("{index}", idx, "{0}", idx, "{}", idx).Replace(tail)
	return prefix + " — " + suffix
}

// RandomTitle samples a prefix and a suffix independently.
func RandomTitle(rng Rand, ts *TemplateSet, keyword string, index int) string {
	base := ts.Base[rng.IntN(len(ts.Base))]
	tail := ts.Tail[rng.IntN(len(ts.Tail))]
	return BuildTitle(base, tail, keyword, index)
}

// RandomParagraph joins 2–4 distinct filler fragments.
func RandomParagraph(rng Rand, lorem []string) string {
	k := 2 + rng.IntN(3)
	if k > len(lorem) {
		k = len(lorem)
	}
	perm := rng.Perm(len(lorem))
	picked := make([]string, 0, k)
	for _, i := range perm[:k] {
		picked = append(picked, lorem[i])
	}
	return strings.Join(picked, " ")
}

// RandomParagraphs returns 4–7 paragraphs.
func RandomParagraphs(rng Rand, lorem []string) []string {
	n := 4 + rng.IntN(4)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, RandomParagraph(rng, lorem))
	}
	return out
}

// HTML renders the self-contained document.
func (p *Page) HTML() string {
	var sb strings.Builder

	fontCSS := FontCSS(p.Font, p.SingleFont)

	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	sb.WriteString(p.Stylesheet)
	sb.WriteString(FontLinks(fontCSS, p.SingleFont))
	sb.WriteString("<style>\n")
	sb.WriteString(fontCSS)
	sb.WriteString("</style>\n")
	sb.WriteString("</head><body>")

	sb.WriteString(fmt.Sprintf("<div class='tagline'>%s</div>", html.EscapeString(Tagline)))
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>", html.EscapeString(p.Title)))
	sb.WriteString(fmt.Sprintf("<div class='author'>Written by AI • Keyword: <b>%s</b></div>", html.EscapeString(p.Keyword)))

	if p.Image != "" {
		sb.WriteString(fmt.Sprintf(`<img class="inline" src="../images/%s" alt="img">`, html.EscapeString(p.Image)))
	}

	for _, para := range p.Paragraphs {
		sb.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(para)))
	}

	sb.WriteString("</body></html>\n")
	return sb.String()
}
