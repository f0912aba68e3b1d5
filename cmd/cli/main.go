package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
)

var (
	configPath  string
	variantName string
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "pydown",
		Short: "PyDown - download media as audio or video",
		Long: `Download a URL as an audio file (mp3, wav, ogg) or as a merged video
(mp4, mov, mkv). Downloads run locally with "download", or on a running
pydown-server with "submit".`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./configs, ~/.pydown, /etc/pydown)")
	rootCmd.PersistentFlags().StringVar(&variantName, "variant", "", "Variant preset (classic, compact)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL for remote commands")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cookiesCmd)
}

// loadConfig applies the persistent --config and --variant flags
func loadConfig() (*domain.Config, error) {
	config, err := app.LoadConfig(configPath, variantName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
