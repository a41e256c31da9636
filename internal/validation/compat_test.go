package validation

import (
	"strings"
	"testing"
)

func TestCheckOBSCompat(t *testing.T) {
	tests := []struct {
		name       string
		obsVersion string
		wsVersion  string
		wantOK     bool
	}{
		{"current versions", "30.0.0", "5.3.3", true},
		{"minimum supported", "28.0.0", "5.0.0", true},
		{"beta suffix", "30.1.0-beta2", "5.4.0", true},
		{"obs too old", "27.2.4", "4.9.1", false},
		{"old websocket plugin", "29.1.3", "4.9.1", false},
		{"unparseable obs version", "unknown", "5.3.3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckOBSCompat(tt.obsVersion, tt.wsVersion)
			if result.OK != tt.wantOK {
				t.Errorf("CheckOBSCompat(%q, %q).OK = %v, want %v",
					tt.obsVersion, tt.wsVersion, result.OK, tt.wantOK)
			}
			if !result.OK && len(result.Fixes) == 0 {
				t.Error("failed check must suggest a fix")
			}
		})
	}
}

func TestCheckOBSCompatMessageMentionsBoth(t *testing.T) {
	result := CheckOBSCompat("30.0.0", "5.3.3")
	if !strings.Contains(result.Message, "OBS 30.0") {
		t.Errorf("message missing OBS version: %s", result.Message)
	}
	if !strings.Contains(result.Message, "WebSocket v5.3.3") {
		t.Errorf("message missing WebSocket version: %s", result.Message)
	}
}
