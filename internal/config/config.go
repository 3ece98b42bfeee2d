package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	// UploadDir is the published artifact root; files below it are exposed
	// under the /uploads URL prefix.
	UploadDir string `toml:"upload_dir"`
	// ScratchDir receives raw recognizer output before publication.
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Whisper contains configuration for the external speech recognizer.
type Whisper struct {
	Enabled      bool   `toml:"enabled"`
	Command      string `toml:"command"`
	Model        string `toml:"model"`
	Task         string `toml:"task"`
	OutputFormat string `toml:"output_format"`
	// Language is the target language code; empty means autodetect.
	Language string `toml:"language"`
	FP16     bool   `toml:"fp16"`
}

// HLSVariant describes one rendition of the adaptive bitrate ladder.
type HLSVariant struct {
	Name         string `toml:"name"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	Bandwidth    int    `toml:"bandwidth"`
	VideoBitrate string `toml:"video_bitrate"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// HLS contains configuration for rendition building.
type HLS struct {
	FFmpegCommand string       `toml:"ffmpeg_command"`
	Variants      []HLSVariant `toml:"variants"`
}

// Workflow contains worker pool and polling configuration.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Whisper  Whisper  `toml:"whisper"`
	HLS      HLS      `toml:"hls"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "lectern", "config.toml"), nil
}

// Load reads configuration from path (or the default location when path is
// empty), applies normalization and validation, and reports the resolved path
// and whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	candidate := strings.TrimSpace(path)
	if candidate == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidate = defaultPath
	}
	expanded, err := expandPath(candidate)
	if err != nil {
		return "", false, err
	}
	info, statErr := os.Stat(expanded)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config path: %w", statErr)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the runtime directories the daemon needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDatabasePath returns the SQLite path backing the transcription queue.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "queue.db")
}

// LessonDatabasePath returns the SQLite path backing lesson records.
func (c *Config) LessonDatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "lessons.db")
}

// SocketPathOrDefault returns the IPC socket path, deriving one under the
// log directory when unset.
func (c *Config) SocketPathOrDefault() string {
	if strings.TrimSpace(c.Paths.SocketPath) != "" {
		return c.Paths.SocketPath
	}
	return filepath.Join(c.Paths.LogDir, "lecternd.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
