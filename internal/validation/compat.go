// Package validation checks the connected OBS instance for version and
// protocol compatibility. Failures are advisory: the daemon keeps running
// and logs the suggested fixes.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of a compatibility check.
type Result struct {
	OK      bool
	Message string
	Issues  []string
	Fixes   []string
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// CheckOBSCompat validates the versions reported by GetVersion. OBS 28+
// ships the v5 WebSocket protocol this client speaks; anything older needs
// an update rather than a workaround.
func CheckOBSCompat(obsVersion, wsVersion string) *Result {
	result := &Result{OK: true}
	var messages []string

	matches := versionRe.FindStringSubmatch(obsVersion)
	if len(matches) < 4 {
		result.OK = false
		result.Issues = append(result.Issues, fmt.Sprintf("could not parse OBS version %q", obsVersion))
		result.Fixes = append(result.Fixes, "Update OBS to the latest version from https://obsproject.com")
		messages = append(messages, "unknown OBS version")
	} else {
		major, _ := strconv.Atoi(matches[1])
		minor, _ := strconv.Atoi(matches[2])
		if major < 28 {
			result.OK = false
			result.Issues = append(result.Issues, fmt.Sprintf("OBS %d.%d is too old (requires 28.0+)", major, minor))
			result.Fixes = append(result.Fixes, "Update OBS to version 28.0 or later")
			messages = append(messages, fmt.Sprintf("OBS %d.%d requires update", major, minor))
		} else {
			messages = append(messages, fmt.Sprintf("OBS %d.%d is compatible", major, minor))
		}
	}

	if !strings.HasPrefix(wsVersion, "5.") {
		result.OK = false
		result.Issues = append(result.Issues, fmt.Sprintf("WebSocket v%s detected (requires 5.x)", wsVersion))
		result.Fixes = append(result.Fixes, "Update the obs-websocket plugin to v5.0 or later")
		messages = append(messages, fmt.Sprintf("WebSocket v%s is incompatible", wsVersion))
	} else {
		messages = append(messages, fmt.Sprintf("WebSocket v%s is compatible", wsVersion))
	}

	result.Message = strings.Join(messages, " | ")
	return result
}
