package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/pydown-go/internal/bootstrap"
	"github.com/yourusername/pydown-go/internal/domain"
)

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a URL as audio or video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		mode, _ := cmd.Flags().GetString("mode")
		audioFormat, _ := cmd.Flags().GetString("audio-format")
		videoFormat, _ := cmd.Flags().GetString("video-format")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		verbose, _ := cmd.Flags().GetBool("verbose")

		if outputDir != "" {
			config.Download.OutputDir = outputDir
		}
		// Keep structured logs off the terminal the progress bar owns
		if !verbose && config.Logging.OutputPath == "stderr" {
			config.Logging.Level = "error"
		}

		printer := newProgressPrinter(os.Stdout, verbose)
		rt, err := bootstrap.New(config, printer)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		req := domain.NewDownloadRequest(
			args[0],
			domain.Mode(mode),
			domain.AudioFormat(audioFormat),
			domain.VideoFormat(videoFormat),
		)

		result, err := rt.Orchestrator.Execute(ctx, req, printer, rt.LogSink)
		if err != nil {
			if result == nil {
				// Rejected before starting; nothing was drawn
				return err
			}
			return fmt.Errorf("download failed (%s): %s", result.ErrorKind, result.ErrorDetail)
		}

		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("mode", "m", string(domain.ModeAudio), "Download mode (audio, video)")
	downloadCmd.Flags().StringP("audio-format", "a", "", "Audio format (mp3, wav, ogg); defaults to the variant default")
	downloadCmd.Flags().StringP("video-format", "f", "", "Video container (mp4, mov, mkv); unknown values fall back to mp4")
	downloadCmd.Flags().StringP("output-dir", "o", "", "Output directory (overrides config)")
	downloadCmd.Flags().BoolP("verbose", "v", false, "Show fetcher output and application logs")
}
