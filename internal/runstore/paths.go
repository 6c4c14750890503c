package runstore

import (
	"path/filepath"
	"regexp"
	"strings"
)

const ledgerFilePrefix = "processed_job_summary_list_"

var nonTokenChars = regexp.MustCompile(`[^a-z0-9]+`)

// AccountToken turns a username into a filesystem-safe token.
// "Jane.Doe@Example.com" becomes "jane_doe_example_com"; an empty result is "default".
func AccountToken(username string) string {
	token := nonTokenChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(username)), "_")
	token = strings.Trim(token, "_")
	if token == "" {
		return "default"
	}
	return token
}

func LedgerPath(ledgerDir, username string) string {
	return filepath.Join(ledgerDir, ledgerFilePrefix+AccountToken(username)+".json")
}

// LedgerToken recovers the account token from a ledger file name.
func LedgerToken(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, ledgerFilePrefix) || !strings.HasSuffix(base, ".json") {
		return "", false
	}
	token := strings.TrimSuffix(strings.TrimPrefix(base, ledgerFilePrefix), ".json")
	if token == "" {
		return "", false
	}
	return token, true
}

func RunsDir(dataDir string) string {
	return filepath.Join(dataDir, "runs")
}

func LocksDir(dataDir string) string {
	return filepath.Join(dataDir, "locks")
}
