package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/profile"
)

func TestDetectLanguage(t *testing.T) {
	profiles, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"hello.py", "python"},
		{"src/Main.java", "java"},
		{"main.CPP", "cpp"},
		{"prog.c", "c"},
		{"query.sql", "sql"},
		{"notes", ""},
		{"data.xyz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := detectLanguage(profiles, tt.path); got != tt.want {
				t.Errorf("detectLanguage(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestPrintStop(t *testing.T) {
	var buf bytes.Buffer
	printStop(&buf, events.FinishedMarker)
	if !strings.Contains(buf.String(), "[Process Finished]") {
		t.Errorf("finished output = %q", buf.String())
	}

	buf.Reset()
	printStop(&buf, "")
	if !strings.Contains(buf.String(), "[Run Aborted]") {
		t.Errorf("aborted output = %q", buf.String())
	}
}
