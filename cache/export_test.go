package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteSnapshot(t *testing.T) {
	c := NewInMemoryCache(0)
	c.Set("b:en:fr:mock", "deux")
	c.Set("a:en:fr:mock", "un")

	var buf bytes.Buffer
	n, err := WriteSnapshot(context.Background(), c, &buf, map[string]string{"locale": "fr"})
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 entries:\n%s", len(lines), buf.String())
	}
	var h SnapshotHeader
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Count != 2 || h.Metadata["locale"] != "fr" {
		t.Errorf("header = %+v", h)
	}
	var first Entry
	if err := json.Unmarshal([]byte(lines[1]), &first); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if first.Key != "a:en:fr:mock" || first.Value != "un" {
		t.Errorf("first entry = %+v, want sorted by key", first)
	}
}

func TestReadSnapshot(t *testing.T) {
	input := `{"format":"gotlm-cache/2","exported_at":"2026-01-01T00:00:00Z","count":2,"metadata":{"source":"test"}}
{"k":"a","v":"1"}

{"k":"b","v":"2"}
`
	c := NewInMemoryCache(0)
	res, err := ReadSnapshot(strings.NewReader(input), c)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if res.Imported != 2 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Header.Metadata["source"] != "test" {
		t.Errorf("metadata = %v", res.Header.Metadata)
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Errorf("Get(b) = %q, %v", v, ok)
	}
}

func TestReadSnapshot_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"wrong format": `{"format":"other/1"}` + "\n",
		"not json":     "{\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSnapshot(strings.NewReader(input), NewInMemoryCache(0))
			if !errors.Is(err, ErrBadSnapshot) {
				t.Errorf("err = %v, want ErrBadSnapshot", err)
			}
		})
	}
}

func TestReadSnapshot_BadEntryLine(t *testing.T) {
	input := `{"format":"gotlm-cache/2","count":2}
{"k":"a","v":"1"}
nope
`
	c := NewInMemoryCache(0)
	res, err := ReadSnapshot(strings.NewReader(input), c)
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err = %v, want a line 3 error", err)
	}
	if res.Imported != 1 {
		t.Errorf("imported = %d, want 1 before the bad line", res.Imported)
	}
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.jsonl")

	src := NewInMemoryCache(0)
	src.Set("st:abc:def:fr", "Bonjour")
	if _, err := SaveSnapshot(context.Background(), src, path, nil); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	dst := NewInMemoryCache(0)
	res, err := LoadSnapshot(path, dst)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if res.Imported != 1 {
		t.Errorf("imported = %d", res.Imported)
	}
	if v, _ := dst.Get("st:abc:def:fr"); v != "Bonjour" {
		t.Errorf("Get = %q", v)
	}
}
