package common

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the application configuration.
type Config struct {
	StorageRoot string          `yaml:"storage_root"`
	Assets      AssetsConfig    `yaml:"assets"`
	Synth       SynthConfig     `yaml:"synth"`
	Capture     CaptureConfig   `yaml:"capture"`
	Assembly    AssemblyConfig  `yaml:"assembly"`
	Gemini      GeminiConfig    `yaml:"gemini"`
	Retention   RetentionConfig `yaml:"retention"`
	Server      ServerConfig    `yaml:"server"`
}

type AssetsConfig struct {
	TemplateFile string `yaml:"template_file"`
	StyleFile    string `yaml:"style_file"`
	ImageDir     string `yaml:"image_dir"`
	AudioCue     string `yaml:"audio_cue"`
}

type SynthConfig struct {
	// Seed fixes the random source when non-nil.
	Seed *int64 `yaml:"seed,omitempty"`
}

type CaptureConfig struct {
	ViewportWidth  int      `yaml:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height"`
	DeviceScale    float64  `yaml:"device_scale"`
	CropWidth      int      `yaml:"crop_width"`
	CropHeight     int      `yaml:"crop_height"`
	PageTimeout    Duration `yaml:"page_timeout"`
	BrowserBin     string   `yaml:"browser_bin"`
	NoSandbox      bool     `yaml:"no_sandbox"`
}

type AssemblyConfig struct {
	FFmpegPath     string   `yaml:"ffmpeg_path"`
	FFprobePath    string   `yaml:"ffprobe_path"`
	Workers        int      `yaml:"workers"`
	SegmentTimeout Duration `yaml:"segment_timeout"`
	Preset         string   `yaml:"preset"`
	CRF            int      `yaml:"crf"`
}

type GeminiConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Sentences int    `yaml:"sentences"`
}

type RetentionConfig struct {
	Enabled  bool     `yaml:"enabled"`
	MaxAge   Duration `yaml:"max_age"`
	Interval Duration `yaml:"interval"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	MaxPages  int    `yaml:"max_pages"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		StorageRoot: "./storage",
		Assets: AssetsConfig{
			TemplateFile: "assets/templates.txt",
			StyleFile:    "assets/headline.css",
			ImageDir:     "assets/images",
			AudioCue:     "assets/camera_shutter.wav",
		},
		Capture: CaptureConfig{
			ViewportWidth:  1680,
			ViewportHeight: 3200,
			DeviceScale:    1,
			CropWidth:      420,
			CropHeight:     800,
			PageTimeout:    Duration(30 * time.Second),
		},
		Assembly: AssemblyConfig{
			FFmpegPath:     "ffmpeg",
			FFprobePath:    "ffprobe",
			Workers:        runtime.NumCPU(),
			SegmentTimeout: Duration(2 * time.Minute),
			Preset:         "slow",
			CRF:            15,
		},
		Gemini: GeminiConfig{
			Model:     "gemini-2.0-flash",
			Sentences: 12,
		},
		Retention: RetentionConfig{
			Enabled:  true,
			MaxAge:   Duration(24 * time.Hour),
			Interval: Duration(6 * time.Hour),
		},
		Server: ServerConfig{
			Addr:      ":8080",
			Workers:   runtime.NumCPU(),
			QueueSize: 100,
			MaxPages:  200,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing file yields
// the defaults. Environment overrides are applied last.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnv loads KEY=VALUE pairs from the given files into the process environment
// without overriding variables that are already set. Missing files are skipped.
func LoadEnv(filenames ...string) error {
	var existing []string
	for _, f := range filenames {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return fmt.Errorf("no env file found")
	}
	return godotenv.Load(existing...)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HIGHLIGHT_STORAGE_ROOT"); v != "" {
		c.StorageRoot = v
	}
	if v := os.Getenv("HIGHLIGHT_FFMPEG"); v != "" {
		c.Assembly.FFmpegPath = v
	}
	if v := os.Getenv("HIGHLIGHT_BROWSER"); v != "" {
		c.Capture.BrowserBin = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.Gemini.APIKey == "" {
		c.Gemini.APIKey = v
	}
}

// Validate checks values that would make a run impossible.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.StorageRoot) == "" {
		problems = append(problems, "storage_root is required")
	}
	if c.Capture.CropWidth <= 0 || c.Capture.CropHeight <= 0 {
		problems = append(problems, "capture crop size must be positive")
	}
	if c.Capture.ViewportWidth <= c.Capture.CropWidth || c.Capture.ViewportHeight <= c.Capture.CropHeight {
		problems = append(problems, "capture viewport must be larger than the crop window")
	}
	if c.Capture.DeviceScale <= 0 {
		problems = append(problems, "capture device_scale must be positive")
	}
	if c.Capture.PageTimeout <= 0 {
		problems = append(problems, "capture page_timeout must be positive")
	}
	if c.Assembly.Workers <= 0 {
		problems = append(problems, "assembly workers must be positive")
	}
	if c.Assembly.SegmentTimeout <= 0 {
		problems = append(problems, "assembly segment_timeout must be positive")
	}
	if c.Server.Workers <= 0 || c.Server.QueueSize <= 0 {
		problems = append(problems, "server workers and queue_size must be positive")
	}
	if c.Retention.Enabled && (c.Retention.MaxAge <= 0 || c.Retention.Interval <= 0) {
		problems = append(problems, "retention max_age and interval must be positive")
	}
	if len(problems) > 0 {
		return ConfigError(strings.Join(problems, "; "), nil)
	}
	return nil
}

// CheckAssets verifies the run inputs exist before any stage starts.
func (a AssetsConfig) CheckAssets() error {
	if _, err := os.ReadFile(a.TemplateFile); err != nil {
		return ConfigError(fmt.Sprintf("template file not readable: %s", a.TemplateFile), err)
	}
	if _, err := os.Stat(a.StyleFile); err != nil {
		return ConfigError(fmt.Sprintf("stylesheet not found: %s", a.StyleFile), err)
	}
	info, err := os.Stat(a.ImageDir)
	if err != nil {
		return ConfigError(fmt.Sprintf("images directory not found: %s", a.ImageDir), err)
	}
	if !info.IsDir() {
		return ConfigError(fmt.Sprintf("images path is not a directory: %s", a.ImageDir), nil)
	}
	if _, err := os.Stat(a.AudioCue); err != nil {
		return ConfigError(fmt.Sprintf("audio cue not found: %s", a.AudioCue), err)
	}
	return nil
}
