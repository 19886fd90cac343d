package highlight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highlight_reel/common"
	"highlight_reel/pipelines/pages"
	"highlight_reel/pipelines/video"
)

const testTemplates = `[LOREM]
Markets were calm.
Weather stayed mild.
The council adjourned early.
[BASE]
{keyword} coverage
[TAIL]
Issue {}
`

func testConfig(t *testing.T) common.Config {
	t.Helper()
	root := t.TempDir()
	assets := filepath.Join(root, "assets")
	require.NoError(t, os.MkdirAll(filepath.Join(assets, "images"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "templates.txt"), []byte(testTemplates), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "headline.css"), []byte("h1 { color: navy; }"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "images", "pic.jpg"), []byte("jpg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "cue.mp3"), []byte("mp3"), 0644))

	cfg := common.DefaultConfig()
	cfg.StorageRoot = filepath.Join(root, "storage")
	cfg.Assets = common.AssetsConfig{
		TemplateFile: filepath.Join(assets, "templates.txt"),
		StyleFile:    filepath.Join(assets, "headline.css"),
		ImageDir:     filepath.Join(assets, "images"),
		AudioCue:     filepath.Join(assets, "cue.mp3"),
	}
	cfg.Assembly.Workers = 2
	return cfg
}

// recordingSynth wraps the real synthesizer and keeps the last request.
type recordingSynth struct {
	inner *pages.Synthesizer
	calls int
	last  pages.SynthesizeRequest
}

func (r *recordingSynth) Synthesize(ctx context.Context, req pages.SynthesizeRequest) ([]string, error) {
	r.calls++
	r.last = req
	return r.inner.Synthesize(ctx, req)
}

// fakeCapturer "matches" the pages whose 1-based index is in match.
type fakeCapturer struct {
	match map[int]bool
	err   error
	calls int
}

func (f *fakeCapturer) Capture(ctx context.Context, pagePaths []string, outputDir, keyword string) ([]common.CaptureResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	var out []common.CaptureResult
	for i, p := range pagePaths {
		if !f.match[i+1] {
			continue
		}
		img := filepath.Join(outputDir, fmt.Sprintf("page_%d_%s.png", i+1, keyword))
		if err := os.WriteFile(img, []byte("png"), 0644); err != nil {
			return nil, err
		}
		out = append(out, common.CaptureResult{PageIndex: i + 1, PagePath: p, ImagePath: img})
	}
	return out, nil
}

// ffmpegStub stands in for ffmpeg by writing every requested output file.
type ffmpegStub struct {
	mu    sync.Mutex
	calls int
}

func (s *ffmpegStub) Run(ctx context.Context, name string, args ...string) (video.CommandResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := os.WriteFile(args[len(args)-1], []byte("mp4"), 0644); err != nil {
		return video.CommandResult{ExitCode: 1}, err
	}
	return video.CommandResult{}, nil
}

type fixedProbe float64

func (p fixedProbe) Duration(ctx context.Context, path string) (float64, error) {
	return float64(p), nil
}

type stubFragments struct {
	lines []string
	err   error
}

func (s stubFragments) FillerSentences(ctx context.Context, keyword string, n int) ([]string, error) {
	return s.lines, s.err
}

type harness struct {
	cfg      common.Config
	synth    *recordingSynth
	capturer *fakeCapturer
	ffmpeg   *ffmpegStub
	pipeline *Pipeline
}

func newHarness(t *testing.T, match map[int]bool, opts ...Option) *harness {
	t.Helper()
	cfg := testConfig(t)
	h := &harness{
		cfg:      cfg,
		synth:    &recordingSynth{inner: pages.NewSynthesizer(nil)},
		capturer: &fakeCapturer{match: match},
		ffmpeg:   &ffmpegStub{},
	}
	ff := video.NewFFmpeg(cfg.Assembly)
	ff.Runner = h.ffmpeg

	base := []Option{
		WithSynthesizer(h.synth),
		WithCapturer(h.capturer),
		WithAssembler(video.NewAssembler(ff, ff, video.OptionsFromConfig(cfg.Assembly), nil, nil)),
		WithProbe(fixedProbe(1.0)),
		WithRunIDs(func() string { return "run-1" }),
	}
	h.pipeline = NewPipeline(cfg, nil, common.NewRecorder(nil), append(base, opts...)...)
	return h
}

func TestRunProducesManifest(t *testing.T) {
	h := newHarness(t, map[int]bool{1: true, 3: true})

	var states []State
	manifest, err := h.pipeline.RunObserved(context.Background(), common.Request{
		Keyword:         "launch",
		Count:           3,
		SegmentDuration: 0.5,
		SingleFont:      true,
	}, func(runID string, s State) {
		assert.Equal(t, "run-1", runID)
		states = append(states, s)
	})
	require.NoError(t, err)

	runDir := filepath.Join(h.cfg.StorageRoot, "runs", "run-1")
	assert.Equal(t, []State{StateSynthesizing, StateCapturing, StateAssembling, StateDone}, states)
	assert.Equal(t, "run-1", manifest.RunID)
	assert.Equal(t, runDir, manifest.RunDir)
	assert.Equal(t, 3, manifest.PageCount)
	assert.Len(t, manifest.Pages, 3)
	assert.Equal(t, 2, manifest.CaptureCount)
	assert.Equal(t, []string{
		filepath.Join(runDir, "snapshots", "page_1_launch.png"),
		filepath.Join(runDir, "snapshots", "page_3_launch.png"),
	}, manifest.Captures)
	assert.Equal(t, filepath.Join(runDir, "video", "final_video.mp4"), manifest.VideoPath)
	assert.InDelta(t, 1.0, manifest.VideoSeconds, 1e-9)

	assert.True(t, h.synth.last.SingleFont)
	assert.Equal(t, filepath.Join(runDir, "pages"), h.synth.last.PagesDir)
	assert.Equal(t, filepath.Join(runDir, "images"), h.synth.last.ImagesDir)
	// two segment encodes and one concat
	assert.Equal(t, 3, h.ffmpeg.calls)

	assert.FileExists(t, filepath.Join(runDir, "manifest.json"))
	entries, err := os.ReadDir(filepath.Join(runDir, "video"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".assemble-"), "work dir %s left behind", e.Name())
	}
}

func TestRunWithNoCapturesFailsWithNoInput(t *testing.T) {
	h := newHarness(t, nil)

	var states []State
	manifest, err := h.pipeline.RunObserved(context.Background(), common.Request{
		Keyword: "launch", Count: 2, SegmentDuration: 0.2,
	}, func(_ string, s State) { states = append(states, s) })

	require.ErrorIs(t, err, common.ErrNoInput)
	assert.Nil(t, manifest)
	assert.Equal(t, common.StageAssemble, common.StageOf(err))
	assert.Equal(t, []State{StateSynthesizing, StateCapturing, StateAssembling, StateFailed}, states)
	assert.Zero(t, h.ffmpeg.calls)
	assert.NoFileExists(t, filepath.Join(h.cfg.StorageRoot, "runs", "run-1", "manifest.json"))
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  common.Request
	}{
		{"empty keyword", common.Request{Keyword: "  ", Count: 1, SegmentDuration: 1}},
		{"zero pages", common.Request{Keyword: "a", Count: 0, SegmentDuration: 1}},
		{"zero duration", common.Request{Keyword: "a", Count: 1, SegmentDuration: 0}},
		{"negative duration", common.Request{Keyword: "a", Count: 1, SegmentDuration: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			_, err := h.pipeline.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, common.KindValidation, common.KindOf(err))
			assert.Zero(t, h.synth.calls)
		})
	}
}

func TestRunMissingAssetsIsConfigError(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, os.Remove(h.cfg.Assets.AudioCue))

	_, err := h.pipeline.Run(context.Background(), common.Request{Keyword: "launch", Count: 1, SegmentDuration: 1})
	require.Error(t, err)
	assert.Equal(t, common.KindConfig, common.KindOf(err))
	assert.Equal(t, common.StageConfig, common.StageOf(err))
	assert.Zero(t, h.synth.calls)
	assert.NoDirExists(t, filepath.Join(h.cfg.StorageRoot, "runs"))
}

func TestRunUndersizedTemplatesIsConfigError(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, os.WriteFile(h.cfg.Assets.TemplateFile, []byte("[LOREM]\nonly\n[BASE]\nb\n[TAIL]\nt\n"), 0644))

	_, err := h.pipeline.Run(context.Background(), common.Request{Keyword: "launch", Count: 1, SegmentDuration: 1})
	require.Error(t, err)
	assert.Equal(t, common.KindConfig, common.KindOf(err))
	assert.Zero(t, h.synth.calls)
}

func TestRunCaptureFailureStopsPipeline(t *testing.T) {
	h := newHarness(t, nil)
	h.capturer.err = common.StageFailure(common.StageCapture, "rendering surface unavailable", errors.New("no chrome"))

	_, err := h.pipeline.Run(context.Background(), common.Request{Keyword: "launch", Count: 2, SegmentDuration: 1})
	require.Error(t, err)
	assert.Equal(t, common.StageCapture, common.StageOf(err))
	assert.Contains(t, err.Error(), "no chrome")
	assert.Zero(t, h.ffmpeg.calls)
}

func TestRunWrapsPlainStageErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.capturer.err = errors.New("boom")

	_, err := h.pipeline.Run(context.Background(), common.Request{Keyword: "launch", Count: 1, SegmentDuration: 1})
	require.Error(t, err)
	se, ok := common.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, common.StageCapture, se.Stage)
	assert.Equal(t, common.KindStage, se.Kind)
}

func TestRunCancelledBeforeCapture(t *testing.T) {
	h := newHarness(t, map[int]bool{1: true})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := h.pipeline.RunObserved(ctx, common.Request{Keyword: "launch", Count: 1, SegmentDuration: 1},
		func(_ string, s State) {
			if s == StateSynthesizing {
				cancel()
			}
		})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.capturer.calls)
}

func TestRunUsesGeneratedFiller(t *testing.T) {
	h := newHarness(t, map[int]bool{1: true}, WithFragmentWriter(stubFragments{lines: []string{"Generated filler."}}))

	_, err := h.pipeline.Run(context.Background(), common.Request{Keyword: "launch", Count: 1, SegmentDuration: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Generated filler."}, h.synth.last.Extra)
}

func TestRunFillerFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, map[int]bool{1: true}, WithFragmentWriter(stubFragments{err: errors.New("quota")}))

	manifest, err := h.pipeline.Run(context.Background(), common.Request{Keyword: "launch", Count: 1, SegmentDuration: 1})
	require.NoError(t, err)
	assert.NotNil(t, manifest)
	assert.Empty(t, h.synth.last.Extra)
}

func TestRunSeededConfigPassesSeededSource(t *testing.T) {
	h := newHarness(t, map[int]bool{1: true})
	seed := int64(99)
	h.pipeline.cfg.Synth.Seed = &seed

	_, err := h.pipeline.Run(context.Background(), common.Request{Keyword: "launch", Count: 1, SegmentDuration: 1})
	require.NoError(t, err)
	assert.NotNil(t, h.synth.last.Rand)
}
