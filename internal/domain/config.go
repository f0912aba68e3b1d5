package domain

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Download     DownloadConfig     `mapstructure:"download" yaml:"download"`
	Variant      VariantConfig      `mapstructure:"variant" yaml:"variant"`
	Fetcher      FetcherConfig      `mapstructure:"fetcher" yaml:"fetcher"`
	Transcoder   TranscoderConfig   `mapstructure:"transcoder" yaml:"transcoder"`
	Notification NotificationConfig `mapstructure:"notification" yaml:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir        string `mapstructure:"output_dir" yaml:"output_dir"`
	FilenameTemplate string `mapstructure:"filename_template" yaml:"filename_template"`
}

// VariantConfig captures what differed between the two program variants
type VariantConfig struct {
	Name                  string        `mapstructure:"name" yaml:"name"`
	PersistLog            bool          `mapstructure:"persist_log" yaml:"persist_log"`
	LogFile               string        `mapstructure:"log_file" yaml:"log_file"`
	AvailableAudioFormats []AudioFormat `mapstructure:"available_audio_formats" yaml:"available_audio_formats"`
	AvailableVideoFormats []VideoFormat `mapstructure:"available_video_formats" yaml:"available_video_formats"`
	DefaultAudioFormat    AudioFormat   `mapstructure:"default_audio_format" yaml:"default_audio_format"`
	DefaultVideoFormat    VideoFormat   `mapstructure:"default_video_format" yaml:"default_video_format"`
}

// SupportsAudio reports whether the variant offers f
func (v *VariantConfig) SupportsAudio(f AudioFormat) bool {
	for _, a := range v.AvailableAudioFormats {
		if a == f {
			return true
		}
	}
	return false
}

// SupportsVideo reports whether the variant offers f
func (v *VariantConfig) SupportsVideo(f VideoFormat) bool {
	for _, a := range v.AvailableVideoFormats {
		if a == f {
			return true
		}
	}
	return false
}

// FetcherConfig contains yt-dlp specific configuration
type FetcherConfig struct {
	YTDLPBinary       string `mapstructure:"ytdlp_binary" yaml:"ytdlp_binary"`
	CookieFile        string `mapstructure:"cookie_file" yaml:"cookie_file"`
	RestrictFilenames bool   `mapstructure:"restrict_filenames" yaml:"restrict_filenames"`
	NoPlaylist        bool   `mapstructure:"no_playlist" yaml:"no_playlist"`
	MergeAudioBitrate string `mapstructure:"merge_audio_bitrate" yaml:"merge_audio_bitrate"`
}

// TranscoderConfig contains ffmpeg specific configuration
type TranscoderConfig struct {
	FFmpegBinary string `mapstructure:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	MP3Bitrate   string `mapstructure:"mp3_bitrate" yaml:"mp3_bitrate"`
	OGGQuality   string `mapstructure:"ogg_quality" yaml:"ogg_quality"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Method  string `mapstructure:"method" yaml:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // json, console
	OutputPath string `mapstructure:"output_path" yaml:"output_path"` // stdout, stderr, or file path
}

// Variant presets matching the two shipped builds
const (
	VariantClassic = "classic"
	VariantCompact = "compact"
)

// ClassicVariant persists its log and offers every format
func ClassicVariant() VariantConfig {
	return VariantConfig{
		Name:                  VariantClassic,
		PersistLog:            true,
		LogFile:               "VanillaPyDown.log",
		AvailableAudioFormats: []AudioFormat{AudioMP3, AudioWAV, AudioOGG},
		AvailableVideoFormats: []VideoFormat{VideoMP4, VideoMOV, VideoMKV},
		DefaultAudioFormat:    AudioMP3,
		DefaultVideoFormat:    VideoMP4,
	}
}

// CompactVariant keeps the log in memory only and offers fewer audio formats
func CompactVariant() VariantConfig {
	return VariantConfig{
		Name:                  VariantCompact,
		PersistLog:            false,
		LogFile:               "VanillaPyDown.log",
		AvailableAudioFormats: []AudioFormat{AudioMP3, AudioWAV},
		AvailableVideoFormats: []VideoFormat{VideoMP4, VideoMOV, VideoMKV},
		DefaultAudioFormat:    AudioMP3,
		DefaultVideoFormat:    VideoMP4,
	}
}

// VariantByName returns a preset, and false for unknown names
func VariantByName(name string) (VariantConfig, bool) {
	switch name {
	case VariantClassic:
		return ClassicVariant(), true
	case VariantCompact:
		return CompactVariant(), true
	}
	return VariantConfig{}, false
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			OutputDir:        "$HOME/Downloads",
			FilenameTemplate: "%(title)s.%(ext)s",
		},
		Variant: ClassicVariant(),
		Fetcher: FetcherConfig{
			YTDLPBinary:       "yt-dlp",
			RestrictFilenames: false,
			NoPlaylist:        true,
			MergeAudioBitrate: "192k",
		},
		Transcoder: TranscoderConfig{
			FFmpegBinary: "ffmpeg",
			MP3Bitrate:   "192k",
			OGGQuality:   "5",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
