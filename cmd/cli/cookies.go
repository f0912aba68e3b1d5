package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/infrastructure"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Export browser cookies for sites that need a login",
	Long: `Copy the cookies a browser holds for a domain into a Netscape cookie
file. The file is written to fetcher.cookie_file (or --output) and passed to
yt-dlp on every download while it exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		browser, _ := cmd.Flags().GetString("browser")
		domain, _ := cmd.Flags().GetString("domain")
		output, _ := cmd.Flags().GetString("output")

		if output == "" {
			output = config.Fetcher.CookieFile
		}
		if output == "" {
			output = filepath.Join(os.Getenv("HOME"), ".pydown", "cookies.txt")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		exporter := infrastructure.NewCookieExporter(zap.NewNop())
		n, err := exporter.Export(ctx, browser, domain, output)
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d cookies to %s\n", n, output)
		if config.Fetcher.CookieFile != output {
			fmt.Printf("Set fetcher.cookie_file: %s to use them\n", output)
		}
		return nil
	},
}

func init() {
	cookiesCmd.Flags().StringP("browser", "b", "", "Browser to read ("+strings.Join(infrastructure.SupportedBrowsers, ", ")+"); empty for all")
	cookiesCmd.Flags().StringP("domain", "d", "youtube.com", "Cookie domain")
	cookiesCmd.Flags().StringP("output", "o", "", "Cookie file (default: fetcher.cookie_file or ~/.pydown/cookies.txt)")
}
