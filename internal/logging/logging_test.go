package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{"info level", false, false},
		{"debug level", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state", "rsvp.log")
			logger, err := New(path, tt.debug)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			logger.Debug("debug entry")
			logger.Info("info entry")
			logger.Sync()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			out := string(data)
			if !strings.Contains(out, `"msg":"info entry"`) {
				t.Errorf("info entry missing:\n%s", out)
			}
			if got := strings.Contains(out, "debug entry"); got != tt.wantDebug {
				t.Errorf("debug entry present = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}
