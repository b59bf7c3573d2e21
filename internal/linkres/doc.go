package linkres

// Package linkres implements link resolution: classifying pasted URLs,
// resolving them into fetchable streams through a selector x profile x
// strategy fallback chain, fetching cover art, and orchestrating the cache
// into finished link tracks.
