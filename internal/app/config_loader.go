package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/pydown-go/internal/domain"
)

// LoadConfig loads configuration from file and environment.
// A non-empty variant name replaces the variant section with that preset
// before the file and environment are applied on top.
func LoadConfig(configPath, variant string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()
	if variant != "" {
		preset, ok := domain.VariantByName(variant)
		if !ok {
			return nil, fmt.Errorf("unknown variant: %s", variant)
		}
		config.Variant = preset
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.pydown")
		v.AddConfigPath("/etc/pydown")
	}

	v.SetEnvPrefix("PYDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Lists from the file replace the preset instead of merging into it.
	if v.IsSet("variant.available_audio_formats") {
		config.Variant.AvailableAudioFormats = nil
	}
	if v.IsSet("variant.available_video_formats") {
		config.Variant.AvailableVideoFormats = nil
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes AutomaticEnv see keys that are absent from the config
// file; viper only consults the environment for keys it already knows.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port",
		"download.output_dir", "download.filename_template",
		"variant.persist_log", "variant.log_file",
		"fetcher.ytdlp_binary", "fetcher.cookie_file", "fetcher.restrict_filenames",
		"transcoder.ffmpeg_binary",
		"notification.enabled", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
	} {
		v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Fetcher.CookieFile = expandPath(config.Fetcher.CookieFile)
	config.Variant.LogFile = resolveLogFile(expandPath(config.Variant.LogFile))

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// resolveLogFile places a bare log file name next to the executable
func resolveLogFile(path string) string {
	if path == "" || filepath.IsAbs(path) || strings.ContainsRune(path, os.PathSeparator) {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(exe), path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if config.Download.FilenameTemplate == "" {
		config.Download.FilenameTemplate = "%(title)s.%(ext)s"
	}

	if config.Variant.PersistLog && config.Variant.LogFile == "" {
		return fmt.Errorf("persist_log is set but no log_file is configured")
	}

	if len(config.Variant.AvailableAudioFormats) == 0 {
		return fmt.Errorf("variant offers no audio formats")
	}
	for _, f := range config.Variant.AvailableAudioFormats {
		if !domain.ValidateAudioFormat(f) {
			return fmt.Errorf("unknown audio format in variant: %s", f)
		}
	}
	for _, f := range config.Variant.AvailableVideoFormats {
		if !domain.ValidateVideoFormat(f) {
			return fmt.Errorf("unknown video format in variant: %s", f)
		}
	}

	if config.Variant.DefaultAudioFormat == "" {
		config.Variant.DefaultAudioFormat = config.Variant.AvailableAudioFormats[0]
	}
	if !config.Variant.SupportsAudio(config.Variant.DefaultAudioFormat) {
		return fmt.Errorf("default audio format %s is not offered by the variant", config.Variant.DefaultAudioFormat)
	}
	if config.Variant.DefaultVideoFormat == "" {
		config.Variant.DefaultVideoFormat = domain.DefaultVideoFormat
	}

	if config.Fetcher.YTDLPBinary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.Transcoder.FFmpegBinary == "" {
		return fmt.Errorf("ffmpeg binary not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", config.Server)
	v.Set("download", config.Download)
	v.Set("variant", config.Variant)
	v.Set("fetcher", config.Fetcher)
	v.Set("transcoder", config.Transcoder)
	v.Set("notification", config.Notification)
	v.Set("logging", config.Logging)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
