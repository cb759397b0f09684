package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fruitsalade/slackfiles/pkg/retry"
)

func testClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(Config{BaseURL: ts.URL, Token: "xoxp-test"})
	return c, ts
}

func TestListFiles_Success(t *testing.T) {
	var gotAuth, gotPage, gotCount, gotPath string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotPage = r.URL.Query().Get("page")
		gotCount = r.URL.Query().Get("count")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"files":[{"id":"F1","size":10,"channels":["C1"]},{"id":"F2","size":20}],` +
			`"paging":{"count":200,"total":2,"page":2,"pages":3}}`))
	}))
	defer ts.Close()

	page, err := c.ListFiles(context.Background(), 2, 200)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if gotAuth != "Bearer xoxp-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/files.list" || gotPage != "2" || gotCount != "200" {
		t.Errorf("request = %s page=%s count=%s", gotPath, gotPage, gotCount)
	}
	if !page.Valid() {
		t.Fatal("expected valid page")
	}
	if page.Paging.Page != 2 || page.Paging.Pages != 3 || page.Paging.Total != 2 {
		t.Errorf("paging = %+v", page.Paging)
	}
	files := page.ItemsFor("files")
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].ID() != "F1" {
		t.Errorf("first id = %q", files[0].ID())
	}
	if n, ok := files[1].Int("size"); !ok || n != 20 {
		t.Errorf("size = %d, %v", n, ok)
	}
	if ch := files[0].Strings("channels"); len(ch) != 1 || ch[0] != "C1" {
		t.Errorf("channels = %v", ch)
	}
}

func TestListFiles_NotOKIsNotAnError(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"ratelimited"}`))
	}))
	defer ts.Close()

	page, err := c.ListFiles(context.Background(), 1, 200)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if page.Valid() {
		t.Error("ok=false page reported valid")
	}
	if page.Error != "ratelimited" {
		t.Errorf("Error = %q", page.Error)
	}
	if page.Paging != nil {
		t.Errorf("Paging = %+v, want nil", page.Paging)
	}
}

func TestListFiles_ServerErrorRetryable(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := c.ListFiles(context.Background(), 1, 200)
	if err == nil {
		t.Fatal("expected error")
	}
	if !retry.IsRetryable(err) {
		t.Errorf("502 should be retryable: %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Errorf("expected StatusError 502, got %v", err)
	}
}

func TestListFiles_ClientErrorNotRetryable(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := c.ListFiles(context.Background(), 1, 200)
	if err == nil || retry.IsRetryable(err) {
		t.Errorf("404 should be a non-retryable error, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users.list" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true,"members":[{"id":"U1","name":"alice"}]}`))
	}))
	defer ts.Close()

	listing, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if !listing.OK || len(listing.Items) != 1 || listing.Items[0].String("name") != "alice" {
		t.Errorf("listing = %+v", listing)
	}
}

func TestListChannels_MissingItems(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"invalid_auth"}`))
	}))
	defer ts.Close()

	listing, err := c.ListChannels(context.Background())
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if listing.OK {
		t.Error("expected ok=false")
	}
	if listing.Items == nil || len(listing.Items) != 0 {
		t.Errorf("Items = %v, want empty", listing.Items)
	}
}

func TestDeleteFile_APIError(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("file"); got != "F1" {
			t.Errorf("file = %q", got)
		}
		w.Write([]byte(`{"ok":false,"error":"file_not_found"}`))
	}))
	defer ts.Close()

	err := c.DeleteFile(context.Background(), "F1")
	if !errors.Is(err, ErrNotOK) {
		t.Fatalf("expected ErrNotOK, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "file_not_found" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestListFiles_KeepsExactNumbers(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"files":[{"id":"F1","size":12345678901234567,` +
			`"shares":{"public":{"C1":[{"ts":"1.2","reply_count":3}]}}}],` +
			`"paging":{"count":200,"total":1,"page":1,"pages":1}}`))
	}))
	defer ts.Close()

	page, err := c.ListFiles(context.Background(), 1, 200)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	f := page.ItemsFor("files")[0]
	if got := f["size"]; got != json.Number("12345678901234567") {
		t.Errorf("size = %#v, want exact json.Number", got)
	}
	shares, ok := f["shares"].(map[string]any)
	if !ok {
		t.Fatalf("shares = %#v", f["shares"])
	}
	reply := shares["public"].(map[string]any)["C1"].([]any)[0].(map[string]any)
	if reply["reply_count"] != json.Number("3") {
		t.Errorf("nested number = %#v", reply["reply_count"])
	}
}

func TestDefaultTransport_Tuned(t *testing.T) {
	tr := DefaultTransport()
	if tr.TLSHandshakeTimeout != 10*time.Second || tr.MaxIdleConns != 100 {
		t.Errorf("transport = %+v", tr)
	}
	if DefaultTransport() == tr {
		t.Error("DefaultTransport should return a fresh transport")
	}
}
