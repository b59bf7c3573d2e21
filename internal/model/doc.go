package model

// Package model defines domain data structures used across the app: tracks,
// playlists, player state, and mode enums. Structures are designed for direct
// binding in the UI and for JSON persistence.
