package config

const (
	defaultUploadDir  = "~/.local/share/lectern/uploads"
	defaultScratchDir = "~/.local/share/lectern/scratch"
	defaultLogDir     = "~/.local/share/lectern/logs"

	defaultWhisperCommand      = "whisper"
	defaultWhisperModel        = "base"
	defaultWhisperTask         = "transcribe"
	defaultWhisperOutputFormat = "srt"

	defaultFFmpegCommand = "ffmpeg"

	defaultWorkers            = 2
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults. The HLS ladder
// is ordered from highest to lowest quality; builders and master playlists
// preserve this order.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:  defaultUploadDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Whisper: Whisper{
			Enabled:      true,
			Command:      defaultWhisperCommand,
			Model:        defaultWhisperModel,
			Task:         defaultWhisperTask,
			OutputFormat: defaultWhisperOutputFormat,
		},
		HLS: HLS{
			FFmpegCommand: defaultFFmpegCommand,
			Variants:      DefaultVariants(),
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultVariants returns the standard three-rung rendition ladder.
func DefaultVariants() []HLSVariant {
	return []HLSVariant{
		{Name: "high", Width: 1920, Height: 1080, Bandwidth: 5000000, VideoBitrate: "5000k", AudioBitrate: "192k"},
		{Name: "medium", Width: 1280, Height: 720, Bandwidth: 2800000, VideoBitrate: "2800k", AudioBitrate: "128k"},
		{Name: "low", Width: 854, Height: 480, Bandwidth: 1400000, VideoBitrate: "1400k", AudioBitrate: "96k"},
	}
}
