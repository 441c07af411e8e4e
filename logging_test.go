package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestBuildHandler(t *testing.T) {
	tests := []struct {
		format   string
		tty      bool
		wantJSON bool
	}{
		{"auto", false, true},
		{"auto", true, false},
		{"json", true, true},
		{"text", false, false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		slog.New(buildHandler(&buf, tt.format, tt.tty, false)).Info("hello", "n", 1)

		var m map[string]any
		isJSON := json.Unmarshal(buf.Bytes(), &m) == nil
		if isJSON != tt.wantJSON {
			t.Errorf("format %q tty %v: JSON = %v, want %v: %s", tt.format, tt.tty, isJSON, tt.wantJSON, buf.String())
		}
	}
}

func TestBuildHandlerLevels(t *testing.T) {
	quiet := buildHandler(&bytes.Buffer{}, "json", false, false)
	if quiet.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("debug enabled without verbose")
	}
	loud := buildHandler(&bytes.Buffer{}, "json", false, true)
	if !loud.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("debug disabled with verbose")
	}
}
