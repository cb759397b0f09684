package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/fruitsalade/slackfiles/internal/metrics"
	"github.com/fruitsalade/slackfiles/pkg/models"
)

// Total is a file count and the sum of their sizes.
type Total struct {
	Count int
	Bytes int64
}

func (t *Total) add(f models.FileRecord) {
	t.Count++
	t.Bytes += f.Size()
}

// Stats aggregates the enriched and abandoned datasets.
type Stats struct {
	All             Total
	Images          Total
	NonPublic       Total
	Abandoned       Total
	AbandonedImages Total
}

// IsImage reports whether the file's mimetype names an image type.
func IsImage(file models.Record) bool {
	return strings.Contains(models.AsFile(file).Mimetype(), "image")
}

// Summarize computes Stats over the enriched files and their abandoned subset.
func Summarize(files, abandoned []models.Record) Stats {
	var s Stats
	for _, r := range files {
		f := models.AsFile(r)
		s.All.add(f)
		if IsImage(r) {
			s.Images.add(f)
		}
		if !f.IsPublic() {
			s.NonPublic.add(f)
		}
	}
	for _, r := range abandoned {
		f := models.AsFile(r)
		s.Abandoned.add(f)
		if IsImage(r) {
			s.AbandonedImages.add(f)
		}
	}
	return s
}

// Publish exports the totals as dataset gauges.
func (s Stats) Publish() {
	for set, t := range map[string]Total{
		"all":              s.All,
		"images":           s.Images,
		"non_public":       s.NonPublic,
		"abandoned":        s.Abandoned,
		"abandoned_images": s.AbandonedImages,
	} {
		metrics.SetDataset(set, t.Count, t.Bytes)
	}
}

// ImageSummary describes the abandoned images a delete would remove.
type ImageSummary struct {
	IDs       []string
	Total     Total
	Mimetypes map[string]int
	Oldest    time.Time
	Newest    time.Time
}

// Empty reports whether there is nothing to delete.
func (s ImageSummary) Empty() bool {
	return len(s.IDs) == 0
}

// SortedMimetypes returns the histogram keys in order.
func (s ImageSummary) SortedMimetypes() []string {
	keys := make([]string, 0, len(s.Mimetypes))
	for k := range s.Mimetypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SummarizeAbandonedImages collects the images in abandoned, in order.
// Oldest and Newest are zero when there are none.
func SummarizeAbandonedImages(abandoned []models.Record) ImageSummary {
	s := ImageSummary{IDs: []string{}, Mimetypes: map[string]int{}}
	var oldest, newest int64
	for _, r := range abandoned {
		if !IsImage(r) {
			continue
		}
		f := models.AsFile(r)
		s.IDs = append(s.IDs, f.ID())
		s.Total.add(f)
		s.Mimetypes[f.Mimetype()]++

		created := f.Created()
		if len(s.IDs) == 1 || created < oldest {
			oldest = created
		}
		if len(s.IDs) == 1 || created > newest {
			newest = created
		}
	}
	if len(s.IDs) > 0 {
		s.Oldest = time.Unix(oldest, 0).UTC()
		s.Newest = time.Unix(newest, 0).UTC()
	}
	return s
}
