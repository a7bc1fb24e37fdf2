//go:build unix

package shellsetup

import (
	"os"
	"strconv"
	"strings"
)

// DetectParentShellName names the process that started pipeline, read from
// /proc. It returns "" where /proc is unavailable.
func DetectParentShellName() string {
	ppid := os.Getppid()
	if ppid <= 0 {
		return ""
	}
	data, err := os.ReadFile("/proc/" + strconv.Itoa(ppid) + "/comm")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
