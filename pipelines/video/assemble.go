// Package video assembles captured images into the final highlight reel.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"highlight_reel/common"
)

// Options bounds segment encoding.
type Options struct {
	Workers        int
	SegmentTimeout time.Duration
}

func OptionsFromConfig(cfg common.AssemblyConfig) Options {
	return Options{Workers: cfg.Workers, SegmentTimeout: cfg.SegmentTimeout.Std()}
}

// Result describes an assembled video. Cleanup removes the private work area.
type Result struct {
	VideoPath string
	Segments  []common.VideoSegment
	Logs      []common.CommandLog
	WorkDir   string
}

func (r *Result) Cleanup() error {
	if r == nil || r.WorkDir == "" {
		return nil
	}
	return os.RemoveAll(r.WorkDir)
}

// Assembler encodes segments in parallel and joins them in source order.
type Assembler struct {
	encoder  SegmentEncoder
	concat   Concatenator
	opts     Options
	logger   *slog.Logger
	recorder *common.Recorder
}

func NewAssembler(encoder SegmentEncoder, concat Concatenator, opts Options, logger *slog.Logger, recorder *common.Recorder) *Assembler {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Assembler{
		encoder:  encoder,
		concat:   concat,
		opts:     opts,
		logger:   common.LoggerOrDefault(logger),
		recorder: recorder,
	}
}

// Assemble produces one segment per capture result and concatenates them into
// outputPath. An empty input fails with common.ErrNoInput and writes nothing.
func (a *Assembler) Assemble(ctx context.Context, results []common.CaptureResult, outputPath, audioCue string, segmentDuration float64) (*Result, error) {
	if len(results) == 0 {
		return nil, common.StageFailure(common.StageAssemble, "no capture results to assemble", common.ErrNoInput)
	}
	if segmentDuration <= 0 {
		return nil, common.StageFailure(common.StageAssemble, fmt.Sprintf("invalid segment duration %v", segmentDuration), nil)
	}

	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, common.ResourceError(common.StageAssemble, "cannot create video directory", err)
	}
	workDir, err := os.MkdirTemp(outDir, ".assemble-*")
	if err != nil {
		return nil, common.ResourceError(common.StageAssemble, "cannot create work directory", err)
	}

	segments := make([]common.VideoSegment, len(results))
	segPaths := make([]string, len(results))
	logs := make([]common.CommandLog, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for i, r := range results {
		segments[i] = common.VideoSegment{
			Index:     i + 1,
			ImagePath: r.ImagePath,
			AudioPath: audioCue,
			Duration:  segmentDuration,
		}
		segPaths[i] = filepath.Join(workDir, fmt.Sprintf("seg_%04d.mp4", i+1))

		g.Go(func() error {
			return a.encodeOne(gctx, segments[i], segPaths[i], &logs[i])
		})
	}

	if err := g.Wait(); err != nil {
		_ = os.RemoveAll(workDir)
		return nil, err
	}

	a.logger.Info("Segments encoded, concatenating", slog.Int("segments", len(segPaths)))

	concatLog, err := a.concat.Concat(ctx, segPaths, filepath.Join(workDir, "list.txt"), outputPath)
	if err != nil {
		_ = os.Remove(outputPath)
		_ = os.RemoveAll(workDir)
		return nil, common.StageFailure(common.StageAssemble, "concatenation failed", err).WithCommand(concatLog)
	}

	return &Result{
		VideoPath: outputPath,
		Segments:  segments,
		Logs:      append(logs, concatLog),
		WorkDir:   workDir,
	}, nil
}

func (a *Assembler) encodeOne(ctx context.Context, seg common.VideoSegment, outputPath string, log *common.CommandLog) error {
	if a.opts.SegmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.SegmentTimeout)
		defer cancel()
	}

	start := time.Now()
	cmdLog, err := a.encoder.EncodeSegment(ctx, seg, outputPath)
	*log = cmdLog
	a.recorder.ObserveSegment(time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", err, ctx.Err())
		}
		return common.StageFailure(common.StageAssemble, fmt.Sprintf("segment %d encode failed", seg.Index), err).WithCommand(cmdLog)
	}

	a.logger.Debug("Segment encoded", common.Segment(seg.Index), common.DurationMS(time.Since(start)))
	return nil
}
