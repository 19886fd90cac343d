package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"highlight_reel/common"
)

// RodFactory launches headless Chromium through go-rod. Without BrowserBin the
// system browser is used when found, otherwise the launcher downloads one.
type RodFactory struct {
	BrowserBin string
	NoSandbox  bool
	Logger     *slog.Logger
}

func (f *RodFactory) NewSurface(ctx context.Context, vp Viewport) (Surface, error) {
	logger := common.LoggerOrDefault(f.Logger)

	l := launcher.New().Context(ctx).Headless(true).NoSandbox(f.NoSandbox)
	switch {
	case f.BrowserBin != "":
		l = l.Bin(f.BrowserBin)
	default:
		if path, ok := launcher.LookPath(); ok {
			l = l.Bin(path)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: vp.Scale,
		Mobile:            false,
	}); err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	logger.Debug("Browser started", slog.Int("width", vp.Width), slog.Int("height", vp.Height))
	return &RodSurface{launcher: l, browser: browser, page: page}, nil
}

// RodSurface is a single browser tab.
type RodSurface struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func (s *RodSurface) Open(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *RodSurface) EvalBool(ctx context.Context, js string, args ...any) (bool, error) {
	res, err := s.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

const boundingBoxJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el || !el.isConnected) return null;
	const r = el.getBoundingClientRect();
	return { x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height };
}`

func (s *RodSurface) BoundingBox(ctx context.Context, selector string) (*common.Region, error) {
	res, err := s.page.Context(ctx).Eval(boundingBoxJS, selector)
	if err != nil {
		return nil, err
	}
	if res.Value.Nil() {
		return nil, nil
	}
	return &common.Region{
		X:      res.Value.Get("x").Num(),
		Y:      res.Value.Get("y").Num(),
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

func (s *RodSurface) Screenshot(ctx context.Context, clip common.Region) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      clip.X,
			Y:      clip.Y,
			Width:  clip.Width,
			Height: clip.Height,
			Scale:  1,
		},
		CaptureBeyondViewport: true,
	})
}

func (s *RodSurface) Close() error {
	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	return errors.Join(errs...)
}
