package dataset

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/fruitsalade/slackfiles/pkg/models"
)

func TestSummarize(t *testing.T) {
	files := sampleFiles()
	abandoned := []models.Record{files[0], files[5]}

	got := Summarize(files, abandoned)
	want := Stats{
		All:             Total{Count: 6, Bytes: 2100},
		Images:          Total{Count: 3, Bytes: 700},
		NonPublic:       Total{Count: 1, Bytes: 500},
		Abandoned:       Total{Count: 2, Bytes: 700},
		AbandonedImages: Total{Count: 1, Bytes: 100},
	}
	if got != want {
		t.Errorf("Summarize = %+v\nwant %+v", got, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil, nil); got != (Stats{}) {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}

func TestSummarizeAbandonedImages(t *testing.T) {
	abandoned := []models.Record{
		{"id": "F1", "mimetype": "image/png", "size": json.Number("10"), "created": json.Number("1000")},
		{"id": "F2", "mimetype": "application/zip", "size": json.Number("99"), "created": json.Number("1")},
		{"id": "F3", "mimetype": "image/jpeg", "size": json.Number("20"), "created": json.Number("500")},
		{"id": "F4", "mimetype": "image/png", "size": json.Number("30"), "created": json.Number("2000")},
	}

	s := SummarizeAbandonedImages(abandoned)

	if !reflect.DeepEqual(s.IDs, []string{"F1", "F3", "F4"}) {
		t.Errorf("IDs = %v", s.IDs)
	}
	if s.Total != (Total{Count: 3, Bytes: 60}) {
		t.Errorf("Total = %+v", s.Total)
	}
	if !reflect.DeepEqual(s.Mimetypes, map[string]int{"image/png": 2, "image/jpeg": 1}) {
		t.Errorf("Mimetypes = %v", s.Mimetypes)
	}
	if !reflect.DeepEqual(s.SortedMimetypes(), []string{"image/jpeg", "image/png"}) {
		t.Errorf("SortedMimetypes = %v", s.SortedMimetypes())
	}
	if !s.Oldest.Equal(time.Unix(500, 0)) || !s.Newest.Equal(time.Unix(2000, 0)) {
		t.Errorf("range = %v..%v", s.Oldest, s.Newest)
	}
}

func TestSummarizeAbandonedImages_None(t *testing.T) {
	s := SummarizeAbandonedImages([]models.Record{{"id": "F2", "mimetype": "text/plain"}})
	if !s.Empty() {
		t.Errorf("IDs = %v, want none", s.IDs)
	}
	if !s.Oldest.IsZero() || !s.Newest.IsZero() {
		t.Error("range should be zero without images")
	}
}
