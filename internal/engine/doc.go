package engine

// Package engine exposes the application facade: it owns the in-memory
// player state and funnels every mutation through sanitization and the
// debounced persistence pipeline.
