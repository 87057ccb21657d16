package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/feedload/pkg/transport"
)

const (
	filePrefix = "feed."
	fileSuffix = ".xml"
	tempGlob   = ".feed-*.tmp"
)

// Key returns the cache key for req: the hex SHA-256 of its JSON encoding.
// A nil Auth and an Auth with empty strings encode differently and so get
// different keys.
func Key(req transport.Request) string {
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileName(key string) string {
	return filePrefix + key + fileSuffix
}

// write replaces the entry for key atomically.
func (c *Cache) write(key string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, tempGlob)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(c.dir, fileName(key)))
}

// Entry describes one cached document.
type Entry struct {
	Key     string
	Path    string
	Size    int64
	ModTime time.Time
	Fresh   bool
}

// Entries lists cached documents, most recently written first.
func (c *Cache) Entries() ([]Entry, error) {
	if !c.Enabled() {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(c.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		name := filepath.Base(path)
		entries = append(entries, Entry{
			Key:     strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix),
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Fresh:   c.fresh(info.ModTime()),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.After(entries[j].ModTime) })
	return entries, nil
}

// Clear removes every cached document and any temporary file left by an
// interrupted write. Other files in the directory are left alone.
func (c *Cache) Clear() (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	var removed int
	for _, pattern := range []string{filePrefix + "*" + fileSuffix, tempGlob} {
		matches, err := filepath.Glob(filepath.Join(c.dir, pattern))
		if err != nil {
			return removed, err
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
