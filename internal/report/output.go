package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFiles persists an issue into dir, creating it if absent. The HTML
// document is always written; markdown and chart files follow when present.
// Returns the written paths.
func WriteFiles(n Newsletter, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	base := strings.ReplaceAll(n.Title, " ", "_") + "_" + n.Date.Format("2006-01-02")

	var paths []string
	htmlPath := filepath.Join(dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(n.HTML), 0o644); err != nil {
		return nil, fmt.Errorf("write newsletter html: %w", err)
	}
	paths = append(paths, htmlPath)

	if n.Markdown != "" {
		mdPath := filepath.Join(dir, base+".md")
		if err := os.WriteFile(mdPath, []byte(n.Markdown), 0o644); err != nil {
			return paths, fmt.Errorf("write newsletter markdown: %w", err)
		}
		paths = append(paths, mdPath)
	}

	if len(n.ChartPNG) > 0 {
		pngPath := filepath.Join(dir, base+".png")
		if err := os.WriteFile(pngPath, n.ChartPNG, 0o644); err != nil {
			return paths, fmt.Errorf("write newsletter chart: %w", err)
		}
		paths = append(paths, pngPath)
	}

	return paths, nil
}
