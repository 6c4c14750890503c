package browser

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type DependencyReport struct {
	ChromeFound bool   `json:"chrome_found"`
	ChromePath  string `json:"chrome_path,omitempty"`
}

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// DependencyStatus locates Chrome. An explicit path wins over the PATH search.
func DependencyStatus(explicitPath string) DependencyReport {
	report := DependencyReport{}
	if p := strings.TrimSpace(explicitPath); p != "" {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			report.ChromeFound = true
			report.ChromePath = p
		}
		return report
	}
	for _, bin := range chromeCandidates {
		if path, err := exec.LookPath(bin); err == nil {
			report.ChromeFound = true
			report.ChromePath = path
			return report
		}
	}
	return report
}

func CheckDependencies(explicitPath string) error {
	if report := DependencyStatus(explicitPath); !report.ChromeFound {
		if strings.TrimSpace(explicitPath) != "" {
			return fmt.Errorf("missing dependency: chrome not found at %s", explicitPath)
		}
		return fmt.Errorf("missing dependency: chrome or chromium is not installed or not on PATH")
	}
	return nil
}
