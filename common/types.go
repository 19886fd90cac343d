package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Region is an on-screen bounding box in CSS pixels, relative to the page origin.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the centre point of the region.
func (r Region) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point lies inside the region (edges included).
func (r Region) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// CaptureResult is produced only for pages whose heading contained the keyword.
type CaptureResult struct {
	PageIndex int    `json:"page_index"`
	PagePath  string `json:"page_path"`
	ImagePath string `json:"image_path"`
	Region    Region `json:"region"`
}

// VideoSegment is one still image held for Duration seconds over the audio cue.
type VideoSegment struct {
	Index     int     `json:"index"`
	ImagePath string  `json:"image_path"`
	AudioPath string  `json:"audio_path"`
	Duration  float64 `json:"duration"`
}

// Request is one generation request as accepted from the CLI or HTTP layer.
type Request struct {
	Keyword         string  `json:"keyword"`
	Count           int     `json:"num_pages"`
	SegmentDuration float64 `json:"duration_per_snapshot"`
	SingleFont      bool    `json:"single_font"`
}

// Manifest is the result of one successful run. It is never mutated after it is returned.
type Manifest struct {
	RunID        string    `json:"run_id"`
	Keyword      string    `json:"keyword"`
	RunDir       string    `json:"run_dir"`
	Pages        []string  `json:"generated_html"`
	Captures     []string  `json:"generated_snapshots"`
	VideoPath    string    `json:"video_path"`
	VideoSeconds float64   `json:"video_seconds,omitempty"`
	PageCount    int       `json:"html_count"`
	CaptureCount int       `json:"snapshot_count"`
	CreatedAt    time.Time `json:"timestamp"`
}

// WriteFile stores the manifest as indented JSON at path.
func (m *Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CaptureImagePaths returns the image paths of results in order.
func CaptureImagePaths(results []CaptureResult) []string {
	paths := make([]string, 0, len(results))
	for _, r := range results {
		paths = append(paths, r.ImagePath)
	}
	return paths
}

// Run directory layout
const (
	PagesDirName     = "pages"
	ImagesDirName    = "images"
	SnapshotsDirName = "snapshots"
	VideoDirName     = "video"
	FinalVideoName   = "final_video.mp4"
	ManifestName     = "manifest.json"
)

// RunLayout holds the directories owned by one run.
type RunLayout struct {
	Root      string
	Pages     string
	Images    string
	Snapshots string
	Video     string
}

// NewRunLayout returns the layout for a run rooted at root.
func NewRunLayout(root string) RunLayout {
	return RunLayout{
		Root:      root,
		Pages:     filepath.Join(root, PagesDirName),
		Images:    filepath.Join(root, ImagesDirName),
		Snapshots: filepath.Join(root, SnapshotsDirName),
		Video:     filepath.Join(root, VideoDirName),
	}
}

// FinalVideoPath is the fixed location of the assembled video inside the run.
func (l RunLayout) FinalVideoPath() string {
	return filepath.Join(l.Video, FinalVideoName)
}

// ManifestPath is where the run manifest is written.
func (l RunLayout) ManifestPath() string {
	return filepath.Join(l.Root, ManifestName)
}
