package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"highlight_reel/common"
)

var errNoMatch = errors.New("keyword not found in any heading")

// Options controls the capture geometry.
type Options struct {
	Viewport    Viewport
	CropWidth   int
	CropHeight  int
	PageTimeout time.Duration
}

// OptionsFromConfig maps the capture configuration section.
func OptionsFromConfig(cfg common.CaptureConfig) Options {
	return Options{
		Viewport: Viewport{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
			Scale:  cfg.DeviceScale,
		},
		CropWidth:   cfg.CropWidth,
		CropHeight:  cfg.CropHeight,
		PageTimeout: cfg.PageTimeout.Std(),
	}
}

// PixelSize is the size in image pixels of one saved crop.
func (o Options) PixelSize() (int, int) {
	scale := o.Viewport.Scale
	if scale <= 0 {
		scale = 1
	}
	return int(math.Round(float64(o.CropWidth) * scale)), int(math.Round(float64(o.CropHeight) * scale))
}

// Capturer drives one rendering surface through a run's pages.
type Capturer struct {
	factory  SurfaceFactory
	opts     Options
	logger   *slog.Logger
	recorder *common.Recorder
}

func NewCapturer(factory SurfaceFactory, opts Options, logger *slog.Logger, recorder *common.Recorder) *Capturer {
	return &Capturer{
		factory:  factory,
		opts:     opts,
		logger:   common.LoggerOrDefault(logger),
		recorder: recorder,
	}
}

// Capture renders pages in order and saves a crop for each page whose heading
// contains keyword. Pages without a match, or that fail to render, are skipped.
func (c *Capturer) Capture(ctx context.Context, pages []string, outputDir, keyword string) ([]common.CaptureResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, common.ResourceError(common.StageCapture, "cannot create snapshot directory", err)
	}

	surface, err := c.factory.NewSurface(ctx, c.opts.Viewport)
	if err != nil {
		return nil, common.StageFailure(common.StageCapture, "rendering surface unavailable", err)
	}
	defer func() {
		if err := surface.Close(); err != nil {
			c.logger.Warn("Failed to close rendering surface", common.Error(err))
		}
	}()

	suffix := common.SafeFileComponent(keyword)
	var results []common.CaptureResult

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, common.StageFailure(common.StageCapture, "capture cancelled", err)
		}

		region, img, err := c.capturePage(ctx, surface, page, keyword)
		if err != nil {
			if ctx.Err() != nil {
				return nil, common.StageFailure(common.StageCapture, "capture cancelled", ctx.Err())
			}
			c.logger.Info("Skipping page", common.Page(page), common.Error(err))
			c.recorder.IncPageCapture(common.ResultSkipped)
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(page), filepath.Ext(page))
		outPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", stem, suffix))
		if err := common.SaveImage(outPath, img); err != nil {
			return nil, common.ResourceError(common.StageCapture, fmt.Sprintf("cannot write snapshot %s", outPath), err)
		}

		c.logger.Info("Captured page", common.Page(page), slog.String("image", outPath))
		c.recorder.IncPageCapture(common.ResultSuccess)
		results = append(results, common.CaptureResult{
			PageIndex: i + 1,
			PagePath:  page,
			ImagePath: outPath,
			Region:    *region,
		})
	}

	return results, nil
}

func (c *Capturer) capturePage(ctx context.Context, s Surface, page, keyword string) (*common.Region, image.Image, error) {
	if c.opts.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.PageTimeout)
		defer cancel()
	}

	u, err := fileURL(page)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Open(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("failed to load page: %w", err)
	}

	region, err := Locate(ctx, s, keyword)
	if err != nil {
		return nil, nil, err
	}
	if region == nil {
		return nil, nil, errNoMatch
	}

	clip := CropWindow(*region, c.opts.CropWidth, c.opts.CropHeight)
	data, err := s.Screenshot(ctx, clip)
	if err != nil {
		return nil, nil, fmt.Errorf("screenshot failed: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	w, h := c.opts.PixelSize()
	return region, common.FitImage(img, w, h), nil
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
