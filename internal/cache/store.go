package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/songdeck/songdeck/internal/model"
)

// Key returns the deterministic cache key for a source URL. The key is the
// cache filename prefix; the extension is decided at download time.
func Key(sourceURL string) string {
	sum := sha1.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// BasePath returns the extensionless cache path for a key. The downloader
// appends the inferred audio extension to it.
func BasePath(cacheDir, key string) string {
	return filepath.Join(cacheDir, key)
}

// Find looks up the cached audio file for a key. Candidates are entries whose
// name starts with the key and carries a recognized audio extension; the first
// non-empty regular file in lexicographic order wins. The lexicographic
// tie-break between extensions is deliberate and load-bearing: repeated
// lookups must pick the same file even when several containers exist for one
// key.
func Find(cacheDir, key string) (string, bool) {
	if key == "" {
		return "", false
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return "", false
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, key) || !model.IsAudioFile(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		full := filepath.Join(cacheDir, name)
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			continue
		}
		return full, true
	}
	return "", false
}

// List returns every canonical cached audio file path in the directory,
// sorted. Partial downloads and unrecognized extensions are skipped.
func List(cacheDir string) ([]string, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !model.IsAudioFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(cacheDir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
