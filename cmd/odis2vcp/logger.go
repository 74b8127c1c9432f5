// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"log/slog"
	"strings"
)

// levelStep is the distance between adjacent slog levels.
const levelStep = 4

// newLogger builds a logger writing to w. shift moves the configured level
// by whole steps: each -q raises it, each -v lowers it.
func newLogger(levelStr, formatStr string, shift int, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	level += slog.Level(shift * levelStep)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
