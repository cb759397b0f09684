package paging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fruitsalade/slackfiles/pkg/models"
	"github.com/fruitsalade/slackfiles/pkg/protocol"
)

// instantClock returns from every wait immediately and records it.
type instantClock struct {
	clock.Clock
	waits []time.Duration
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// fakeListing serves pages of ids "p<page>-<n>".
type fakeListing struct {
	pages    int
	perPage  int
	calls    map[int]int
	failures map[int]int // page -> remaining failures
	invalid  map[int]int // page -> remaining invalid responses
	reported func(page int) int
}

func newFakeListing(pages, perPage int) *fakeListing {
	return &fakeListing{
		pages:    pages,
		perPage:  perPage,
		calls:    map[int]int{},
		failures: map[int]int{},
		invalid:  map[int]int{},
	}
}

func (l *fakeListing) list(_ context.Context, page, count int) (*protocol.Page, error) {
	l.calls[page]++
	if l.failures[page] > 0 {
		l.failures[page]--
		return nil, errors.New("connection reset")
	}
	if l.invalid[page] > 0 {
		l.invalid[page]--
		return &protocol.Page{OK: false, Error: "ratelimited"}, nil
	}
	items := make([]models.Record, 0, l.perPage)
	for i := 0; i < l.perPage; i++ {
		items = append(items, models.Record{"id": fmt.Sprintf("p%d-%d", page, i)})
	}
	reported := page
	if l.reported != nil {
		reported = l.reported(page)
	}
	return &protocol.Page{
		OK:     true,
		Items:  map[string][]models.Record{"files": items},
		Paging: &protocol.Paging{Page: reported, Pages: l.pages, Count: count},
	}, nil
}

func newTestFetcher(clk clock.Clock, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return New(Config{Clock: clk, Logger: logger})
}

func TestFetchAll_Completeness(t *testing.T) {
	listing := newFakeListing(3, 2)
	f := newTestFetcher(&instantClock{Clock: clock.New()}, nil)

	got, err := f.FetchAll(context.Background(), listing.list, "files", "files list")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	want := []string{"p1-0", "p1-1", "p2-0", "p2-1", "p3-0", "p3-1"}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID() != id {
			t.Errorf("item %d = %q, want %q", i, got[i].ID(), id)
		}
	}
	for page := 1; page <= 3; page++ {
		if listing.calls[page] != 1 {
			t.Errorf("page %d called %d times, want 1", page, listing.calls[page])
		}
	}
}

func TestFetchAll_UsesPageSize(t *testing.T) {
	var gotCount int
	op := func(_ context.Context, page, count int) (*protocol.Page, error) {
		gotCount = count
		return &protocol.Page{OK: true, Paging: &protocol.Paging{Page: 1, Pages: 1}}, nil
	}
	f := newTestFetcher(&instantClock{Clock: clock.New()}, nil)
	got, err := f.FetchAll(context.Background(), op, "files", "files list")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if gotCount != DefaultPageSize {
		t.Errorf("count = %d, want %d", gotCount, DefaultPageSize)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestFetchAll_RetryConvergence(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(l *fakeListing)
		retries int
	}{
		{"transport errors", func(l *fakeListing) { l.failures[2] = 3 }, 3},
		{"invalid pages", func(l *fakeListing) { l.invalid[2] = 2 }, 2},
		{"mixed", func(l *fakeListing) { l.failures[1] = 1; l.invalid[1] = 1 }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := newFakeListing(3, 1)
			tt.setup(listing)
			clk := &instantClock{Clock: clock.New()}
			f := newTestFetcher(clk, nil)

			got, err := f.FetchAll(context.Background(), listing.list, "files", "files list")
			if err != nil {
				t.Fatalf("FetchAll: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("got %d items, want 3 (no accumulation from failed attempts)", len(got))
			}
			total := 0
			for _, n := range listing.calls {
				total += n
			}
			if total != 3+tt.retries {
				t.Errorf("total calls = %d, want %d", total, 3+tt.retries)
			}
			if len(clk.waits) != tt.retries {
				t.Fatalf("waits = %d, want %d", len(clk.waits), tt.retries)
			}
			for _, w := range clk.waits {
				if w != DefaultRetryDelay {
					t.Errorf("wait = %v, want fixed %v", w, DefaultRetryDelay)
				}
			}
		})
	}
}

func TestFetchAll_MissingPagingRetried(t *testing.T) {
	calls := 0
	op := func(_ context.Context, page, count int) (*protocol.Page, error) {
		calls++
		if calls == 1 {
			return &protocol.Page{OK: true}, nil
		}
		return &protocol.Page{
			OK:     true,
			Items:  map[string][]models.Record{"files": {{"id": "F1"}}},
			Paging: &protocol.Paging{Page: 1, Pages: 1},
		}, nil
	}
	f := newTestFetcher(&instantClock{Clock: clock.New()}, nil)
	got, err := f.FetchAll(context.Background(), op, "files", "files list")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if calls != 2 || len(got) != 1 {
		t.Errorf("calls = %d, items = %d", calls, len(got))
	}
}

func TestFetchAll_PageMismatchWarnsAndUsesLocalCounter(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	listing := newFakeListing(3, 1)
	listing.reported = func(int) int { return 1 } // server always claims page 1
	f := newTestFetcher(&instantClock{Clock: clock.New()}, zap.New(core))

	got, err := f.FetchAll(context.Background(), listing.list, "files", "files list")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d items, want 3", len(got))
	}
	if listing.calls[3] != 1 || listing.calls[4] != 0 {
		t.Errorf("calls = %v, want pages 1..3 once each", listing.calls)
	}
	warnings := logs.FilterMessage("server reported unexpected page number").All()
	if len(warnings) != 2 {
		t.Fatalf("got %d mismatch warnings, want 2", len(warnings))
	}
	if warnings[0].ContextMap()["expected"] != int64(2) {
		t.Errorf("first warning = %v", warnings[0].ContextMap())
	}
}

func TestFetchAll_RetryLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	listing := newFakeListing(1, 1)
	listing.failures[1] = 1
	f := newTestFetcher(&instantClock{Clock: clock.New()}, zap.New(core))

	if _, err := f.FetchAll(context.Background(), listing.list, "files", "files list"); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	entries := logs.FilterMessage("listing page failed, retrying").All()
	if len(entries) != 1 {
		t.Fatalf("got %d retry entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["listing"] != "files list" || fields["page"] != int64(1) {
		t.Errorf("fields = %v", fields)
	}
}

func TestFetchAll_ShouldRetryRejects(t *testing.T) {
	permanent := errors.New("invalid_auth")
	op := func(context.Context, int, int) (*protocol.Page, error) { return nil, permanent }
	f := New(Config{
		Clock:       &instantClock{Clock: clock.New()},
		Logger:      zap.NewNop(),
		ShouldRetry: func(err error) bool { return !errors.Is(err, permanent) },
	})
	_, err := f.FetchAll(context.Background(), op, "files", "files list")
	if !errors.Is(err, permanent) {
		t.Errorf("err = %v, want %v", err, permanent)
	}
}

func TestFetchAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op := func(context.Context, int, int) (*protocol.Page, error) {
		cancel()
		return nil, errors.New("timeout")
	}
	f := New(Config{Delay: time.Hour, Logger: zap.NewNop()})
	_, err := f.FetchAll(ctx, op, "files", "files list")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew_RetryDelay(t *testing.T) {
	for _, tc := range []struct {
		name  string
		delay time.Duration
		want  time.Duration
	}{
		{"zero uses default", 0, DefaultRetryDelay},
		{"negative uses default", -time.Second, DefaultRetryDelay},
		{"explicit", 3 * time.Second, 3 * time.Second},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clk := &instantClock{Clock: clock.New()}
			listing := newFakeListing(1, 1)
			listing.failures[1] = 2
			f := New(Config{Delay: tc.delay, Clock: clk, Logger: zap.NewNop()})

			if _, err := f.FetchAll(context.Background(), listing.list, "files", "files list"); err != nil {
				t.Fatalf("FetchAll: %v", err)
			}
			if len(clk.waits) != 2 {
				t.Fatalf("waits = %v, want 2", clk.waits)
			}
			for _, w := range clk.waits {
				if w != tc.want {
					t.Errorf("wait = %v, want %v", w, tc.want)
				}
			}
		})
	}
}
