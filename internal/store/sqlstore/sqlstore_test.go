package sqlstore

import (
	"strings"
	"testing"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver      string
		placeholder string
		upsert      string
		blobType    string
	}{
		{"postgres", "$1", "ON CONFLICT (cache_key)", "BYTEA"},
		{"mysql", "?", "ON DUPLICATE KEY UPDATE", "LONGBLOB"},
	}

	for _, tt := range tests {
		d, err := dialectFor(tt.driver, "sessions")
		if err != nil {
			t.Fatalf("dialectFor(%s): %v", tt.driver, err)
		}
		if !strings.Contains(d.get, "FROM sessions WHERE cache_key = "+tt.placeholder) {
			t.Errorf("%s get = %q", tt.driver, d.get)
		}
		if !strings.Contains(d.put, tt.upsert) {
			t.Errorf("%s put = %q", tt.driver, d.put)
		}
		if !strings.Contains(d.create, tt.blobType) {
			t.Errorf("%s create = %q", tt.driver, d.create)
		}
	}

	if _, err := dialectFor("sqlite", "sessions"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
