package pilotsite

import "embed"

// EmbeddedAssets holds the scripts served from /public/ without a static
// directory. live.js keeps the dashboard list current.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
