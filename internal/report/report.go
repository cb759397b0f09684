// Package report renders dataset statistics as plain text tables.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fruitsalade/slackfiles/internal/dataset"
)

// WriteStats prints one row per file set with exact and human-readable sizes.
func WriteStats(out io.Writer, s dataset.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SET\tFILES\tBYTES\tSIZE\t")
	fmt.Fprintln(w, "---\t-----\t-----\t----\t")
	for _, row := range []struct {
		name  string
		total dataset.Total
	}{
		{"all files", s.All},
		{"images", s.Images},
		{"non-public", s.NonPublic},
		{"abandoned", s.Abandoned},
		{"abandoned images", s.AbandonedImages},
	} {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", row.name, row.total.Count, row.total.Bytes, FormatSize(row.total.Bytes))
	}
	return w.Flush()
}

// WriteImageSummary prints what deleting the abandoned images would remove.
func WriteImageSummary(out io.Writer, s dataset.ImageSummary) error {
	if s.Empty() {
		_, err := fmt.Fprintln(out, "No abandoned images")
		return err
	}

	fmt.Fprintf(out, "Abandoned images: %d (%d bytes, %s)\n", s.Total.Count, s.Total.Bytes, FormatSize(s.Total.Bytes))
	fmt.Fprintf(out, "Created:          %s .. %s\n", formatTime(s.Oldest), formatTime(s.Newest))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MIMETYPE\tCOUNT")
	fmt.Fprintln(w, "--------\t-----")
	for _, mt := range s.SortedMimetypes() {
		name := mt
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "%s\t%d\n", name, s.Mimetypes[mt])
	}
	return w.Flush()
}

// FormatSize renders a byte count with binary units.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02")
}
