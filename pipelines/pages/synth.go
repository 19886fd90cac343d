// Package pages synthesizes the styled HTML documents a run captures.
package pages

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"highlight_reel/common"
)

// SynthesizeRequest describes one batch of pages.
type SynthesizeRequest struct {
	Keyword        string
	Count          int
	PagesDir       string
	ImagesDir      string // per-run copy of the shared pool
	SharedImageDir string
	TemplatePath   string
	StylePath      string
	SingleFont     bool
	Extra          []string // additional filler fragments
	Rand           Rand     // nil means a fresh unseeded source
}

// Synthesizer writes page documents.
type Synthesizer struct {
	logger *slog.Logger
}

func NewSynthesizer(logger *slog.Logger) *Synthesizer {
	return &Synthesizer{logger: common.LoggerOrDefault(logger)}
}

// NewSeededRand returns a deterministic random source for seed.
func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Synthesize writes req.Count documents and returns their paths in index order.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) ([]string, error) {
	pages, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(pages))
	for _, p := range pages {
		paths = append(paths, p.Path)
	}
	return paths, nil
}

// Generate is Synthesize returning the full page descriptions.
func (s *Synthesizer) Generate(ctx context.Context, req SynthesizeRequest) ([]Page, error) {
	if req.Count < 1 {
		return nil, fmt.Errorf("page count must be positive, got %d", req.Count)
	}

	ts, err := LoadTemplates(req.TemplatePath)
	if err != nil {
		return nil, err
	}
	if len(req.Extra) > 0 {
		ts = ts.WithExtraFiller(req.Extra)
	}
	if err := ts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template set: %w", err)
	}

	if err := os.MkdirAll(req.PagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create pages dir: %w", err)
	}
	if err := os.MkdirAll(req.ImagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images dir: %w", err)
	}

	copied, err := CopyImagePool(req.SharedImageDir, req.ImagesDir)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Copied image pool", slog.Int("images", copied))

	css, err := LoadStylesheet(req.StylePath)
	if err != nil {
		s.logger.Warn("Stylesheet unreadable, continuing without it", slog.String("path", req.StylePath), common.Error(err))
		css = ""
	} else if css == "" && req.StylePath != "" {
		s.logger.Warn("Stylesheet not found, continuing without it", slog.String("path", req.StylePath))
	}

	images, err := listImages(req.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	rng := req.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	pages := make([]Page, 0, req.Count)
	for i := 1; i <= req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := Page{
			Index:      i,
			Keyword:    req.Keyword,
			SingleFont: req.SingleFont,
			Stylesheet: css,
		}
		page.Font = SelectFont(rng, ts.Fonts, req.SingleFont)
		page.Title = RandomTitle(rng, ts, req.Keyword, i)
		if len(images) > 0 {
			page.Image = images[rng.IntN(len(images))]
		}
		page.Paragraphs = RandomParagraphs(rng, ts.Lorem)
		page.Path = filepath.Join(req.PagesDir, fmt.Sprintf("page_%d.html", i))

		if err := os.WriteFile(page.Path, []byte(page.HTML()), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", page.Path, err)
		}

		s.logger.Info("Generated page",
			slog.Int("index", i),
			slog.String("title", page.Title),
			slog.String("style", page.Font.Style))
		pages = append(pages, page)
	}

	return pages, nil
}

// CopyImagePool copies every image in src into dst, overwriting same-named files.
func CopyImagePool(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("failed to read image pool: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() || !common.IsImageFile(entry.Name()) {
			continue
		}
		if err := common.CopyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return n, fmt.Errorf("failed to copy image %s: %w", entry.Name(), err)
		}
		n++
	}
	return n, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && common.IsImageFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
