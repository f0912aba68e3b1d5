package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"
	"go.uber.org/zap"
)

// SupportedBrowsers lists the browsers cookies can be exported from
var SupportedBrowsers = []string{"chrome", "chromium", "edge", "firefox", "opera"}

// CookieExporter copies browser cookies into a Netscape cookie file that
// the fetcher can pass to yt-dlp
type CookieExporter struct {
	logger *zap.Logger
	read   func(ctx context.Context, filters ...kooky.Filter) ([]*kooky.Cookie, error)
}

// NewCookieExporter creates an exporter reading from the local browser stores
func NewCookieExporter(logger *zap.Logger) *CookieExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CookieExporter{
		logger: logger,
		read: func(ctx context.Context, filters ...kooky.Filter) ([]*kooky.Cookie, error) {
			return kooky.ReadCookies(ctx, filters...)
		},
	}
}

// Export writes the cookies of browser (empty for all) matching domain to
// path and returns how many were written
func (e *CookieExporter) Export(ctx context.Context, browser, domain, path string) (int, error) {
	if domain == "" {
		return 0, fmt.Errorf("a cookie domain is required")
	}
	browser = strings.ToLower(strings.TrimSpace(browser))

	cookies, err := e.read(ctx, kooky.Valid, kooky.DomainHasSuffix(domain))
	if err != nil {
		return 0, fmt.Errorf("read cookies from browser: %w", err)
	}

	var selected []*kooky.Cookie
	for _, c := range cookies {
		if browser != "" && c.Browser != nil && !strings.Contains(strings.ToLower(c.Browser.Browser()), browser) {
			continue
		}
		selected = append(selected, c)
	}
	if len(selected) == 0 {
		return 0, fmt.Errorf("no cookies found for browser %q and domain %q", browser, domain)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create cookie directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create cookie file: %w", err)
	}
	defer file.Close()

	if err := writeNetscapeCookies(file, selected); err != nil {
		return 0, fmt.Errorf("failed to write cookie file: %w", err)
	}

	e.logger.Info("Exported browser cookies",
		zap.String("browser", browser),
		zap.String("domain", domain),
		zap.String("path", path),
		zap.Int("count", len(selected)))

	return len(selected), nil
}

// writeNetscapeCookies writes cookies in the tab separated cookies.txt layout
func writeNetscapeCookies(w io.Writer, cookies []*kooky.Cookie) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("# Netscape HTTP Cookie File\n"); err != nil {
		return err
	}

	for _, c := range cookies {
		domain := c.Domain
		if c.HttpOnly {
			domain = "#HttpOnly_" + domain
		}
		expires := c.Expires.Unix()
		if c.Expires.IsZero() || expires < 0 {
			expires = 0
		}
		path := c.Path
		if path == "" {
			path = "/"
		}

		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain,
			netscapeBool(strings.HasPrefix(c.Domain, ".")),
			path,
			netscapeBool(c.Secure),
			expires,
			c.Name,
			c.Value)
	}

	return bw.Flush()
}

func netscapeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
