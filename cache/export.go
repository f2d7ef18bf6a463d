package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"
)

// snapshotFormat tags the first line of every snapshot.
const snapshotFormat = "gotlm-cache/2"

// SnapshotHeader is the first line of a snapshot. Each following line is
// one Entry.
type SnapshotHeader struct {
	Format     string            `json:"format"`
	ExportedAt time.Time         `json:"exported_at"`
	Count      int               `json:"count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Entry is one cached translation.
type Entry struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// WriteSnapshot streams every live entry of l to w as JSON lines, sorted by
// key so two snapshots of the same cache diff cleanly. It returns the number
// of entries written.
func WriteSnapshot(ctx context.Context, l Lister, w io.Writer, metadata map[string]string) (int, error) {
	data, err := l.Entries(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing cache entries: %w", err)
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	header := SnapshotHeader{
		Format:     snapshotFormat,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Count:      len(keys),
		Metadata:   metadata,
	}
	if err := enc.Encode(header); err != nil {
		return 0, fmt.Errorf("writing snapshot header: %w", err)
	}
	for _, k := range keys {
		if err := enc.Encode(Entry{Key: k, Value: data[k]}); err != nil {
			return 0, fmt.Errorf("writing entry %s: %w", k, err)
		}
	}
	return len(keys), bw.Flush()
}

// RestoreResult reports what ReadSnapshot loaded.
type RestoreResult struct {
	Header   SnapshotHeader
	Imported int
	Failed   int
}

// ErrBadSnapshot is returned for input that is not a cache snapshot.
var ErrBadSnapshot = errors.New("not a gotlm cache snapshot")

// ReadSnapshot loads a snapshot from r into c. Entries the cache refuses are
// counted in Failed; a malformed line aborts the restore.
func ReadSnapshot(r io.Reader, c TranslationCache) (*RestoreResult, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading snapshot: %w", err)
		}
		return nil, ErrBadSnapshot
	}
	res := &RestoreResult{}
	if err := json.Unmarshal(sc.Bytes(), &res.Header); err != nil || res.Header.Format != snapshotFormat {
		return nil, ErrBadSnapshot
	}

	line := 1
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if err := c.Set(e.Key, e.Value); err != nil {
			res.Failed++
			continue
		}
		res.Imported++
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("reading snapshot: %w", err)
	}
	return res, nil
}

// SaveSnapshot writes a snapshot of l to path.
func SaveSnapshot(ctx context.Context, l Lister, path string, metadata map[string]string) (int, error) {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return 0, err
	}
	n, err := WriteSnapshot(ctx, l, f, metadata)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// LoadSnapshot restores the snapshot stored at path into c.
func LoadSnapshot(path string, c TranslationCache) (*RestoreResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSnapshot(f, c)
}
