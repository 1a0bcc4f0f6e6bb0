// ABOUTME: Tests for logger construction and level parsing.
// ABOUTME: Verifies JSON output carries the component field and honors levels.
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New("store", Options{Level: "debug", Format: "json", Out: &buf})
	log.Debug().Msg("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "store" {
		t.Errorf("expected component=store, got %v", line["component"])
	}
	if line["message"] != "hello" {
		t.Errorf("expected message=hello, got %v", line["message"])
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("store", Options{Level: "error", Out: &buf})
	log.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Errorf("expected no output below error level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.WarnLevel},
		{"chatty", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
