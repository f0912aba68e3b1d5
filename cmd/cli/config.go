package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
	"github.com/yourusername/pydown-go/pkg/logger"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the formats the active variant offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		v := config.Variant
		fmt.Printf("Variant: %s\n", v.Name)
		fmt.Printf("  Audio: %s (default %s)\n", joinFormats(v.AvailableAudioFormats), v.DefaultAudioFormat)
		fmt.Printf("  Video: %s (default %s)\n", joinFormats(v.AvailableVideoFormats), v.DefaultVideoFormat)
		if v.PersistLog {
			fmt.Printf("  Log:   %s\n", v.LogFile)
		} else {
			fmt.Printf("  Log:   not persisted\n")
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the persisted download log",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		if !config.Variant.PersistLog {
			return fmt.Errorf("the %s variant does not persist its log", config.Variant.Name)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		search, _ := cmd.Flags().GetString("search")
		follow, _ := cmd.Flags().GetBool("follow")

		reader := logger.NewLogReader(config.Variant.LogFile)

		var lines []string
		if search != "" {
			lines, err = reader.SearchLines(search, limit)
		} else {
			lines, err = reader.ReadLines(limit)
		}
		if err != nil {
			return fmt.Errorf("failed to read log: %w", err)
		}
		for _, line := range lines {
			fmt.Println(line)
		}

		if !follow {
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := make(chan string)
		errCh := make(chan error, 1)
		go func() { errCh <- reader.Follow(ctx, out) }()

		for {
			select {
			case line := <-out:
				fmt.Println(line)
			case err := <-errCh:
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(os.Getenv("HOME"), ".pydown", "config.yaml")
		if len(args) == 1 {
			path = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		config := domain.DefaultConfig()
		if variantName != "" {
			preset, ok := domain.VariantByName(variantName)
			if !ok {
				return fmt.Errorf("unknown variant: %s", variantName)
			}
			config.Variant = preset
		}

		if err := app.SaveConfig(config, path); err != nil {
			return err
		}
		fmt.Printf("Config written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Server:     %s:%d\n", config.Server.Host, config.Server.Port)
		fmt.Printf("Output dir: %s\n", config.Download.OutputDir)
		fmt.Printf("Template:   %s\n", config.Download.FilenameTemplate)
		fmt.Printf("Variant:    %s\n", config.Variant.Name)
		fmt.Printf("yt-dlp:     %s\n", config.Fetcher.YTDLPBinary)
		fmt.Printf("ffmpeg:     %s\n", config.Transcoder.FFmpegBinary)
		fmt.Printf("Logging:    %s (%s) -> %s\n", config.Logging.Level, config.Logging.Format, config.Logging.OutputPath)
		return nil
	},
}

func init() {
	logsCmd.Flags().IntP("limit", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().StringP("search", "s", "", "Only show lines containing this text")
	logsCmd.Flags().BoolP("follow", "F", false, "Keep printing new lines")

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func joinFormats[T ~string](formats []T) string {
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
