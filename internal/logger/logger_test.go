package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriterLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(tt.level, &buf)
			if l.GetLevel() != tt.want {
				t.Errorf("Expected level %s, got %s", tt.want, l.GetLevel())
			}
		})
	}
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWithWriter("info", &buf), "reconcile")
	l.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"reconcile"`) {
		t.Errorf("Expected component field in %s", out)
	}
	if !strings.Contains(out, `"pid"`) {
		t.Errorf("Expected pid field in %s", out)
	}
}
