package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateHLS(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWhisper() error {
	if !c.Whisper.Enabled {
		return nil
	}
	if c.Whisper.Command == "" {
		return errors.New("whisper.command must be set when whisper.enabled is true")
	}
	if c.Whisper.Model == "" {
		return errors.New("whisper.model must be set when whisper.enabled is true")
	}
	if c.Whisper.Task == "" {
		return errors.New("whisper.task must be set when whisper.enabled is true")
	}
	if c.Whisper.OutputFormat != "srt" {
		return fmt.Errorf("whisper.output_format %q is unsupported; the pipeline expects srt captions", c.Whisper.OutputFormat)
	}
	return nil
}

func (c *Config) validateHLS() error {
	if c.HLS.FFmpegCommand == "" {
		return errors.New("hls.ffmpeg_command must be set")
	}
	if len(c.HLS.Variants) == 0 {
		return errors.New("hls.variants must include at least one rendition")
	}
	seen := make(map[string]struct{}, len(c.HLS.Variants))
	previousBandwidth := 0
	for i, variant := range c.HLS.Variants {
		if variant.Name == "" {
			return fmt.Errorf("hls.variants[%d].name must be set", i)
		}
		if _, dup := seen[variant.Name]; dup {
			return fmt.Errorf("hls.variants name %q is duplicated", variant.Name)
		}
		seen[variant.Name] = struct{}{}
		if variant.Width <= 0 || variant.Height <= 0 {
			return fmt.Errorf("hls.variants[%d] resolution must be positive", i)
		}
		if variant.Bandwidth <= 0 {
			return fmt.Errorf("hls.variants[%d].bandwidth must be positive", i)
		}
		if variant.VideoBitrate == "" || variant.AudioBitrate == "" {
			return fmt.Errorf("hls.variants[%d] bitrates must be set", i)
		}
		if i > 0 && variant.Bandwidth > previousBandwidth {
			return errors.New("hls.variants must be ordered from highest to lowest quality")
		}
		previousBandwidth = variant.Bandwidth
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}
