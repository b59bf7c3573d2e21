package cache

// Package cache implements the content-addressable audio cache: sha1 keys
// derived from source URLs, prefix-based lookup over the cache directory, and
// a crash-safe downloader that materializes files atomically.
