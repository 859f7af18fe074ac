package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    LogFormat
		wantErr bool
	}{
		{"text", LogFormatText, false},
		{"JSON", LogFormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLogFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetLogLevel(DefaultLogLevel)

	DefaultLogger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message logged at default level: %q", buf.String())
	}
	SetLogLevelToDebug()
	DefaultLogger.WithField("subsys", "test").Debug("shown")
	if !strings.Contains(buf.String(), "subsys=test") {
		t.Errorf("missing field in %q", buf.String())
	}
	if DefaultLogger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", DefaultLogger.GetLevel())
	}
}
