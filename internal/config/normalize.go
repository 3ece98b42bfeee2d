package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(strings.TrimSpace(c.Paths.UploadDir)); err != nil {
		return err
	}
	if c.Paths.ScratchDir, err = expandPath(strings.TrimSpace(c.Paths.ScratchDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if trimmed := strings.TrimSpace(c.Paths.SocketPath); trimmed != "" {
		if c.Paths.SocketPath, err = expandPath(trimmed); err != nil {
			return err
		}
	} else {
		c.Paths.SocketPath = ""
	}

	c.Whisper.Command = strings.TrimSpace(c.Whisper.Command)
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	c.Whisper.Task = strings.TrimSpace(c.Whisper.Task)
	c.Whisper.OutputFormat = strings.ToLower(strings.TrimSpace(c.Whisper.OutputFormat))
	c.Whisper.Language = strings.TrimSpace(c.Whisper.Language)

	c.HLS.FFmpegCommand = strings.TrimSpace(c.HLS.FFmpegCommand)
	for i := range c.HLS.Variants {
		c.HLS.Variants[i].Name = strings.TrimSpace(c.HLS.Variants[i].Name)
		c.HLS.Variants[i].VideoBitrate = strings.TrimSpace(c.HLS.Variants[i].VideoBitrate)
		c.HLS.Variants[i].AudioBitrate = strings.TrimSpace(c.HLS.Variants[i].AudioBitrate)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
