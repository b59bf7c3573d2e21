package state

// Package state implements library persistence: a total, idempotent sanitizer
// from untrusted data to the canonical player state, an atomic JSON store
// with existence-filtering on load, and a debounced saver that collapses
// mutation bursts into single writes.
