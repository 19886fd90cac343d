// Package highlight runs the page → capture → video pipeline for one request.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"highlight_reel/common"
	"highlight_reel/pipelines/pages"
	"highlight_reel/pipelines/snapshot"
	"highlight_reel/pipelines/video"
)

// Synthesizer writes the page documents of a run.
type Synthesizer interface {
	Synthesize(ctx context.Context, req pages.SynthesizeRequest) ([]string, error)
}

// Capturer renders pages and saves highlight crops.
type Capturer interface {
	Capture(ctx context.Context, pages []string, outputDir, keyword string) ([]common.CaptureResult, error)
}

// Assembler joins crops into the final video.
type Assembler interface {
	Assemble(ctx context.Context, results []common.CaptureResult, outputPath, audioCue string, segmentDuration float64) (*video.Result, error)
}

// DurationProbe reads the length of a media file.
type DurationProbe interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Observer is told about every state the run enters.
type Observer func(runID string, state State)

// Pipeline coordinates the three stages of a run.
type Pipeline struct {
	cfg       common.Config
	synth     Synthesizer
	capture   Capturer
	assemble  Assembler
	probe     DurationProbe
	fragments common.FragmentWriter
	logger    *slog.Logger
	recorder  *common.Recorder
	newID     func() string
	now       func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

func WithSynthesizer(s Synthesizer) Option { return func(p *Pipeline) { p.synth = s } }
func WithCapturer(c Capturer) Option { return func(p *Pipeline) { p.capture = c } }
func WithAssembler(a Assembler) Option { return func(p *Pipeline) { p.assemble = a } }
func WithProbe(d DurationProbe) Option { return func(p *Pipeline) { p.probe = d } }
func WithFragmentWriter(w common.FragmentWriter) Option {
	return func(p *Pipeline) { p.fragments = w }
}
func WithRunIDs(next func() string) Option { return func(p *Pipeline) { p.newID = next } }

// NewPipeline wires the production stages from cfg.
func NewPipeline(cfg common.Config, logger *slog.Logger, recorder *common.Recorder, opts ...Option) *Pipeline {
	logger = common.LoggerOrDefault(logger)
	ffmpeg := video.NewFFmpeg(cfg.Assembly)

	p := &Pipeline{
		cfg:   cfg,
		synth: pages.NewSynthesizer(logger),
		capture: snapshot.NewCapturer(
			&snapshot.RodFactory{BrowserBin: cfg.Capture.BrowserBin, NoSandbox: cfg.Capture.NoSandbox, Logger: logger},
			snapshot.OptionsFromConfig(cfg.Capture),
			logger,
			recorder,
		),
		assemble: video.NewAssembler(ffmpeg, ffmpeg, video.OptionsFromConfig(cfg.Assembly), logger, recorder),
		probe:    video.NewFFprobe(cfg.Assembly),
		logger:   logger,
		recorder: recorder,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateRequest rejects requests no run can satisfy.
func ValidateRequest(req common.Request) error {
	if strings.TrimSpace(req.Keyword) == "" {
		return common.ValidationError("keyword must not be empty")
	}
	if req.Count < 1 {
		return common.ValidationError(fmt.Sprintf("page count must be at least 1, got %d", req.Count))
	}
	if math.IsNaN(req.SegmentDuration) || math.IsInf(req.SegmentDuration, 0) || req.SegmentDuration <= 0 {
		return common.ValidationError(fmt.Sprintf("segment duration must be positive, got %v", req.SegmentDuration))
	}
	return nil
}

// Run executes one request and returns its manifest.
func (p *Pipeline) Run(ctx context.Context, req common.Request) (*common.Manifest, error) {
	return p.RunObserved(ctx, req, nil)
}

// RunObserved is Run with a state observer.
func (p *Pipeline) RunObserved(ctx context.Context, req common.Request, observe Observer) (*common.Manifest, error) {
	manifest, err := p.run(ctx, req, observe)
	p.recorder.IncRunOutcome(err)
	return manifest, err
}

func (p *Pipeline) run(ctx context.Context, req common.Request, observe Observer) (*common.Manifest, error) {
	req.Keyword = strings.TrimSpace(req.Keyword)
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := p.preflight(); err != nil {
		return nil, err
	}

	runID := p.newID()
	layout := common.NewRunLayout(filepath.Join(p.cfg.StorageRoot, common.RunsDirName, runID))
	logger := p.logger.With(common.RunID(runID), common.Keyword(req.Keyword))
	state := NewRunState()

	enter := func(to State) error {
		if err := state.Transition(to); err != nil {
			return err
		}
		logger.Info("Run state changed", common.Stage(string(to)))
		if observe != nil {
			observe(runID, to)
		}
		return nil
	}
	fail := func(err error) (*common.Manifest, error) {
		_ = enter(StateFailed)
		logger.Error("Run failed", common.Stage(common.StageOf(err)), common.Error(err))
		return nil, err
	}

	logger.Info("Starting run",
		slog.Int("pages", req.Count),
		slog.Float64("segment_duration", req.SegmentDuration),
		slog.Bool("single_font", req.SingleFont),
		slog.String("run_dir", layout.Root))

	// Step 1: pages
	if err := enter(StateSynthesizing); err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(layout.Root, 0755); err != nil {
		return fail(common.ResourceError(common.StageSynthesize, "cannot create run directory", err))
	}
	synthReq := pages.SynthesizeRequest{
		Keyword:        req.Keyword,
		Count:          req.Count,
		PagesDir:       layout.Pages,
		ImagesDir:      layout.Images,
		SharedImageDir: p.cfg.Assets.ImageDir,
		TemplatePath:   p.cfg.Assets.TemplateFile,
		StylePath:      p.cfg.Assets.StyleFile,
		SingleFont:     req.SingleFont,
		Extra:          p.fillerFragments(ctx, req.Keyword, logger),
	}
	if p.cfg.Synth.Seed != nil {
		synthReq.Rand = pages.NewSeededRand(*p.cfg.Synth.Seed)
	}
	var pagePaths []string
	if err := p.stage(ctx, common.StageSynthesize, "page synthesis failed", func() error {
		var err error
		pagePaths, err = p.synth.Synthesize(ctx, synthReq)
		return err
	}); err != nil {
		return fail(err)
	}
	logger.Info("Pages generated", slog.Int("count", len(pagePaths)))

	// Step 2: captures
	if err := enter(StateCapturing); err != nil {
		return fail(err)
	}
	var captures []common.CaptureResult
	if err := p.stage(ctx, common.StageCapture, "capture failed", func() error {
		var err error
		captures, err = p.capture.Capture(ctx, pagePaths, layout.Snapshots, req.Keyword)
		return err
	}); err != nil {
		return fail(err)
	}
	logger.Info("Pages captured", slog.Int("captured", len(captures)), slog.Int("skipped", len(pagePaths)-len(captures)))

	// Step 3: video. Zero captures still enters assembly, which reports no input.
	if err := enter(StateAssembling); err != nil {
		return fail(err)
	}
	var assembled *video.Result
	if err := p.stage(ctx, common.StageAssemble, "video assembly failed", func() error {
		var err error
		assembled, err = p.assemble.Assemble(ctx, captures, layout.FinalVideoPath(), p.cfg.Assets.AudioCue, req.SegmentDuration)
		return err
	}); err != nil {
		return fail(err)
	}
	defer func() {
		if err := assembled.Cleanup(); err != nil {
			logger.Warn("Failed to remove assembly work directory", common.Error(err))
		}
	}()

	manifest := &common.Manifest{
		RunID:        runID,
		Keyword:      req.Keyword,
		RunDir:       layout.Root,
		Pages:        pagePaths,
		Captures:     common.CaptureImagePaths(captures),
		VideoPath:    assembled.VideoPath,
		PageCount:    len(pagePaths),
		CaptureCount: len(captures),
		CreatedAt:    p.now().UTC(),
	}
	if p.probe != nil {
		if secs, err := p.probe.Duration(ctx, assembled.VideoPath); err != nil {
			logger.Warn("Could not read video duration", common.Error(err))
		} else {
			manifest.VideoSeconds = secs
		}
	}
	if err := manifest.WriteFile(layout.ManifestPath()); err != nil {
		return fail(common.ResourceError(common.StageAssemble, "cannot write manifest", err))
	}

	if err := enter(StateDone); err != nil {
		return fail(err)
	}
	logger.Info("Run complete", slog.String("video", manifest.VideoPath), slog.Int("snapshots", manifest.CaptureCount))
	return manifest, nil
}

// preflight reports configuration problems before any stage starts.
func (p *Pipeline) preflight() error {
	if err := p.cfg.Assets.CheckAssets(); err != nil {
		return err
	}
	ts, err := pages.LoadTemplates(p.cfg.Assets.TemplateFile)
	if err != nil {
		return common.ConfigError("cannot read templates", err)
	}
	if err := ts.Validate(); err != nil {
		return common.ConfigError("template set is incomplete", err)
	}
	return nil
}

// stage runs fn, records its metrics and makes sure any error carries the stage.
func (p *Pipeline) stage(ctx context.Context, stage, message string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.recorder.ObserveStage(stage, time.Since(start), err)
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return common.StageFailure(stage, "run cancelled", ctxErr)
		}
		return nil
	}
	if _, ok := common.AsStageError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return common.StageFailure(stage, "run cancelled", err)
	}
	return common.StageFailure(stage, message, err)
}

// fillerFragments asks the fragment writer for extra filler. Failures only lose the extra text.
func (p *Pipeline) fillerFragments(ctx context.Context, keyword string, logger *slog.Logger) []string {
	w := p.fragments
	if w == nil {
		if !p.cfg.Gemini.Enabled || p.cfg.Gemini.APIKey == "" {
			return nil
		}
		client, err := common.NewGeminiClient(ctx, p.cfg.Gemini.APIKey, p.cfg.Gemini.Model)
		if err != nil {
			logger.Warn("Gemini unavailable, using template filler only", common.Error(err))
			return nil
		}
		defer client.Close()
		w = client
	}

	n := p.cfg.Gemini.Sentences
	if n <= 0 {
		n = 12
	}
	lines, err := w.FillerSentences(ctx, keyword, n)
	if err != nil {
		logger.Warn("Filler generation failed, using template filler only", common.Error(err))
		return nil
	}
	logger.Debug("Generated filler", slog.Int("sentences", len(lines)))
	return lines
}
