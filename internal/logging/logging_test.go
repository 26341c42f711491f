package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   string
		format  string
		wantErr error
	}{
		{"defaults", "", "", nil},
		{"debug text", "debug", "text", nil},
		{"warn json", "warn", "JSON", nil},
		{"bad level", "loud", "text", ErrInvalidLevel},
		{"bad format", "info", "xml", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l, err := New(tt.level, tt.format, &buf)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l == nil {
				t.Fatal("nil logger")
			}
		})
	}
}

func TestNew_JSONFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New("info", FormatJSON, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.WithField("workspace", "abc").Info("render finished")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if entry["workspace"] != "abc" || entry["msg"] != "render finished" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New("warn", FormatText, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info logged at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn not logged")
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	Discard().Error("nothing to see")
}
