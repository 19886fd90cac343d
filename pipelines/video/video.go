package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"highlight_reel/common"
)

// SegmentEncoder turns one still image plus the audio cue into a video segment.
type SegmentEncoder interface {
	EncodeSegment(ctx context.Context, seg common.VideoSegment, outputPath string) (common.CommandLog, error)
}

// Concatenator joins segments, in order, without re-encoding.
type Concatenator interface {
	Concat(ctx context.Context, segments []string, listPath, outputPath string) (common.CommandLog, error)
}

// FFmpeg implements SegmentEncoder and Concatenator with the ffmpeg CLI.
type FFmpeg struct {
	Path   string
	Preset string
	CRF    int
	Runner CommandRunner
}

func NewFFmpeg(cfg common.AssemblyConfig) *FFmpeg {
	path := cfg.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	preset := cfg.Preset
	if preset == "" {
		preset = "slow"
	}
	return &FFmpeg{
		Path:   path,
		Preset: preset,
		CRF:    cfg.CRF,
		Runner: ExecRunner{},
	}
}

// SegmentArgs returns the ffmpeg arguments for one segment. The image is looped for
// the segment duration and the output is trimmed to the shorter stream.
func (f *FFmpeg) SegmentArgs(seg common.VideoSegment, outputPath string) []string {
	return []string{
		"-hide_banner", "-nostdin",
		"-y",
		"-loop", "1",
		"-t", strconv.FormatFloat(seg.Duration, 'f', -1, 64),
		"-i", seg.ImagePath,
		"-i", seg.AudioPath,
		"-c:v", "libx264",
		"-preset", f.Preset,
		"-crf", strconv.Itoa(f.CRF),
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	}
}

func (f *FFmpeg) EncodeSegment(ctx context.Context, seg common.VideoSegment, outputPath string) (common.CommandLog, error) {
	return f.run(ctx, f.SegmentArgs(seg, outputPath))
}

// ConcatArgs returns the ffmpeg arguments for a stream-copy concat of listPath.
func (f *FFmpeg) ConcatArgs(listPath, outputPath string) []string {
	return []string{
		"-hide_banner", "-nostdin",
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		outputPath,
	}
}

func (f *FFmpeg) Concat(ctx context.Context, segments []string, listPath, outputPath string) (common.CommandLog, error) {
	if err := WriteConcatList(listPath, segments); err != nil {
		return common.CommandLog{}, err
	}
	return f.run(ctx, f.ConcatArgs(listPath, outputPath))
}

func (f *FFmpeg) run(ctx context.Context, args []string) (common.CommandLog, error) {
	res, err := f.Runner.Run(ctx, f.Path, args...)
	log := common.CommandLog{
		Command:  f.Path,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
	if err != nil {
		return log, fmt.Errorf("ffmpeg failed: %w, output: %s", err, strings.TrimSpace(res.Stderr))
	}
	if res.ExitCode != 0 {
		return log, fmt.Errorf("ffmpeg exited with code %d", res.ExitCode)
	}
	return log, nil
}

// WriteConcatList writes a concat demuxer list of absolute segment paths.
func WriteConcatList(path string, segments []string) error {
	var sb strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			return fmt.Errorf("failed to resolve segment path %s: %w", seg, err)
		}
		sb.WriteString(fmt.Sprintf("file '%s'\n", escapeConcatPath(abs)))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}

// escapeConcatPath quotes a path for a single-quoted concat list entry.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

// FFprobe reads media durations with the ffprobe CLI.
type FFprobe struct {
	Path   string
	Runner CommandRunner
}

func NewFFprobe(cfg common.AssemblyConfig) *FFprobe {
	path := cfg.FFprobePath
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{Path: path, Runner: ExecRunner{}}
}

// Duration returns the container duration of path in seconds.
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	res, err := p.Runner.Run(ctx, p.Path,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", strings.TrimSpace(res.Stdout), err)
	}
	return d, nil
}
