package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		level   string
		want    zerolog.Level
		logInfo bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{"warn", zerolog.WarnLevel, false},
		{"", zerolog.InfoLevel, true},
		{"nonsense", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Setenv("ENV", "")
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level, "json")

			if log.GetLevel() != tt.want {
				t.Errorf("Expected level %v, got %v", tt.want, log.GetLevel())
			}

			log.Info().Msg("hello")
			if got := buf.Len() > 0; got != tt.logInfo {
				t.Fatalf("Expected info logged=%v, got output %q", tt.logInfo, buf.String())
			}
			if !tt.logInfo {
				return
			}

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Expected JSON output: %v", err)
			}
			if entry["service"] != "content-dashboard" {
				t.Errorf("Expected service field, got %v", entry["service"])
			}
		})
	}
}
