// Package feedpage renders the ranked feed as a static HTML page.
package feedpage

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cli/browser"

	"github.com/ytsubs/ytsubs/internal/ranking"
)

//go:embed feed.html.tmpl
var feedTemplate string

var tmpl = template.Must(template.New("feed").Funcs(template.FuncMap{
	"compact":  compactCount,
	"duration": formatDuration,
	"age":      formatAge,
	"percent":  func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
}).Parse(feedTemplate))

// Page is the data handed to the template.
type Page struct {
	GeneratedAt time.Time
	Videos      []ranking.Video
}

// Render writes the feed page HTML.
func Render(w io.Writer, videos []ranking.Video, generatedAt time.Time) error {
	if err := tmpl.Execute(w, Page{GeneratedAt: generatedAt, Videos: videos}); err != nil {
		return fmt.Errorf("render feed page: %w", err)
	}
	return nil
}

// WriteFile renders the feed page to path, creating parent directories.
func WriteFile(path string, videos []ranking.Video, generatedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create feed page: %w", err)
	}
	defer f.Close()
	return Render(f, videos, generatedAt)
}

// Open launches the default browser on a rendered feed page.
func Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve feed page path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("feed page not found, generate it first: %w", err)
	}
	if err := browser.OpenURL("file://" + abs); err != nil {
		return fmt.Errorf("open feed page: %w", err)
	}
	return nil
}

// compactCount formats 1234567 as "1.2M" the way the feed tiles do.
func compactCount(n *int64) string {
	if n == nil {
		return "?"
	}
	v := *n
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(v)/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", float64(v)/1_000)
	default:
		return fmt.Sprintf("%d", v)
	}
}

func formatDuration(seconds *int64) string {
	if seconds == nil || *seconds <= 0 {
		return ""
	}
	d := *seconds
	if d >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", d/3600, (d%3600)/60, d%60)
	}
	return fmt.Sprintf("%d:%02d", d/60, d%60)
}

func formatAge(published time.Time) string {
	age := time.Since(published)
	switch {
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
