package pages

import (
	"fmt"
	"strings"
)

// Style tags of the built-in palette.
const (
	StyleModern      = "modern"
	StyleClassic     = "classic"
	StyleTraditional = "traditional"
	StyleClean       = "clean"
	StyleTech        = "tech"
	StyleElegant     = "elegant"
)

// SingleFontFamily is used for every page in single-font mode.
const SingleFontFamily = "'Poppins', sans-serif"

// FontConfig is the typography chosen for one page.
type FontConfig struct {
	Primary   string // headings
	Secondary string // body
	Style     string
}

// DefaultPalette is used when the template set has no [FONTS] entries.
var DefaultPalette = []FontConfig{
	{"Georgia, serif", "Arial, sans-serif", StyleClassic},
	{"'Segoe UI', Tahoma, Geneva, Verdana, sans-serif", "'Open Sans', sans-serif", StyleModern},
	{"'Times New Roman', Times, serif", "Verdana, Geneva, sans-serif", StyleTraditional},
	{"'Arial', sans-serif", "'Helvetica Neue', sans-serif", StyleClean},
	{"'Courier New', monospace", "'Lucida Console', monospace", StyleTech},
	{"'Palatino Linotype', 'Book Antiqua', Palatino, serif", "Garamond, serif", StyleElegant},
}

// Sizing holds the typographic constants of a style tag.
type Sizing struct {
	H1            string
	H2            string
	P             string
	LineHeight    string
	LetterSpacing string
}

var styleSizing = map[string]Sizing{
	StyleModern:      {"2.8rem", "2.2rem", "1.1rem", "1.6", "0.01em"},
	StyleClassic:     {"2.5rem", "1.8rem", "1rem", "1.5", "normal"},
	StyleTraditional: {"2.2rem", "1.6rem", "0.95rem", "1.4", "normal"},
	StyleClean:       {"2.4rem", "1.9rem", "1.05rem", "1.7", "0.02em"},
	StyleTech:        {"2.6rem", "2rem", "1rem", "1.4", "0.03em"},
	StyleElegant:     {"2.7rem", "1.7rem", "0.9rem", "1.8", "0.01em"},
}

// SizingFor returns the sizing table of style, falling back to classic.
func SizingFor(style string) Sizing {
	if s, ok := styleSizing[style]; ok {
		return s
	}
	return styleSizing[StyleClassic]
}

// ParseFontDescriptor parses "primary | secondary | style".
func ParseFontDescriptor(desc string) FontConfig {
	parts := strings.Split(desc, "|")
	if len(parts) < 2 {
		return FontConfig{
			Primary:   strings.TrimSpace(desc),
			Secondary: "Arial, sans-serif",
			Style:     StyleClassic,
		}
	}
	fc := FontConfig{
		Primary:   strings.TrimSpace(parts[0]),
		Secondary: strings.TrimSpace(parts[1]),
		Style:     StyleClassic,
	}
	if len(parts) >= 3 {
		if s := strings.TrimSpace(parts[2]); s != "" {
			fc.Style = s
		}
	}
	return fc
}

// SelectFont picks the font configuration for one page.
func SelectFont(rng Rand, descriptors []string, singleFont bool) FontConfig {
	if singleFont {
		return FontConfig{Primary: SingleFontFamily, Secondary: SingleFontFamily, Style: StyleClean}
	}
	if len(descriptors) > 0 {
		return ParseFontDescriptor(descriptors[rng.IntN(len(descriptors))])
	}
	return DefaultPalette[rng.IntN(len(DefaultPalette))]
}

const poppinsCSS = `
/* Poppins font configuration */
@import url('https://fonts.googleapis.com/css2?family=Poppins:wght@300;400;500;600;700&display=swap');

* {
    font-family: 'Poppins', sans-serif;
}

body {
    font-family: 'Poppins', sans-serif;
    font-weight: 400;
    line-height: 1.6;
    letter-spacing: 0.01em;
}

h1, h2, h3, h4, h5, h6 {
    font-family: 'Poppins', sans-serif;
    font-weight: 600;
}

h1 {
    font-size: 2.4rem;
    line-height: 1.2;
    margin-bottom: 1.5rem;
}

h2 {
    font-size: 1.8rem;
    margin: 1.5rem 0 1rem 0;
}

.tagline {
    font-family: 'Poppins', sans-serif;
    font-size: 0.9rem;
    font-weight: 500;
    letter-spacing: 0.05em;
    text-transform: uppercase;
    opacity: 0.8;
}

.author {
    font-family: 'Poppins', sans-serif;
    font-style: italic;
    font-weight: 300;
    font-size: 0.95rem;
    margin-bottom: 2rem;
    color: #555;
}

b, strong {
    font-weight: 600;
}
`

// FontCSS renders the typography stylesheet for fc.
func FontCSS(fc FontConfig, singleFont bool) string {
	if singleFont {
		return poppinsCSS
	}
	s := SizingFor(fc.Style)
	return fmt.Sprintf(`
/* Font Configuration: %[1]s style */
* {
    font-family: %[3]s;
}

body {
    font-family: %[3]s;
    font-size: %[6]s;
    line-height: %[7]s;
    letter-spacing: %[8]s;
    -webkit-font-smoothing: antialiased;
    -moz-osx-font-smoothing: grayscale;
}

h1, h2, h3, h4, h5, h6 {
    font-family: %[2]s;
    font-weight: 700;
}

h1 {
    font-size: %[4]s;
    margin-bottom: 1.5rem;
    line-height: 1.2;
}

h2 {
    font-size: %[5]s;
    margin: 1.5rem 0 1rem 0;
}

.tagline {
    font-family: %[3]s;
    font-size: 0.9rem;
    letter-spacing: 0.05em;
    text-transform: uppercase;
    font-weight: 600;
    opacity: 0.8;
}

.author {
    font-family: %[3]s;
    font-style: italic;
    font-size: 0.95rem;
    margin-bottom: 2rem;
    color: #555;
}
`, fc.Style, fc.Primary, fc.Secondary, s.H1, s.H2, s.P, s.LineHeight, s.LetterSpacing)
}

// webFonts maps font families found in a stylesheet to their Google Fonts family spec.
var webFonts = []struct{ family, spec string }{
	{"'Open Sans'", "Open+Sans:400,600,700"},
	{"'Roboto'", "Roboto:400,700"},
	{"'Lato'", "Lato:400,700"},
	{"'Montserrat'", "Montserrat:700"},
	{"'Playfair Display'", "Playfair+Display:700"},
}

const fontPreconnect = "<link rel='preconnect' href='https://fonts.googleapis.com'>" +
	"<link rel='preconnect' href='https://fonts.gstatic.com' crossorigin>"

// FontLinks returns the <link> tags needed to load web fonts used by fontCSS.
func FontLinks(fontCSS string, singleFont bool) string {
	if singleFont {
		return fontPreconnect +
			"<link href='https://fonts.googleapis.com/css2?family=Poppins:wght@300;400;500;600;700&display=swap' rel='stylesheet'>"
	}

	var families []string
	for _, wf := range webFonts {
		if strings.Contains(fontCSS, wf.family) {
			families = append(families, wf.spec)
		}
	}
	if len(families) == 0 {
		return ""
	}
	return fontPreconnect + fmt.Sprintf(
		"<link href='https://fonts.googleapis.com/css2?family=%s&display=swap' rel='stylesheet'>",
		strings.Join(families, "&family="))
}
