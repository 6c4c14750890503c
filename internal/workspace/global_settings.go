package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"easyapply/internal/browser"
	"easyapply/internal/runstore"
)

// GlobalSettings apply to every account unless the account or a flag overrides them.
type GlobalSettings struct {
	Headless        *bool  `json:"headless,omitempty"`
	Proxy           string `json:"proxy,omitempty"`
	LedgerDir       string `json:"ledger_dir,omitempty"`
	UploadsDir      string `json:"uploads_dir,omitempty"`
	PageWaitSeconds int    `json:"page_wait_seconds,omitempty"`
	// JobPauseSeconds is slept between listings; nil means the default, 0 disables it.
	JobPauseSeconds *int   `json:"job_pause_seconds,omitempty"`
}

// RunSettings is everything a run needs after the defaults cascade.
type RunSettings struct {
	Account         Account
	Username        string
	Keyword         string
	Location        string
	MaxApplications int
	Headless        bool
	Proxy           string
	LedgerPath      string
	PageWait        time.Duration
	JobPause        time.Duration
}

type RunOverrides struct {
	Keyword         string
	Location        string
	MaxApplications int
	Headless        *bool
	Proxy           string
}

func defaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		Headless:        boolPtr(true),
		PageWaitSeconds: DefaultPageWaitSeconds,
		JobPauseSeconds: intPtr(DefaultJobPauseSeconds),
	}
}

func normalizeGlobalSettings(raw GlobalSettings) GlobalSettings {
	def := defaultGlobalSettings()
	norm := raw
	if norm.Headless == nil {
		norm.Headless = def.Headless
	}
	norm.Proxy = strings.TrimSpace(norm.Proxy)
	norm.LedgerDir = strings.TrimSpace(norm.LedgerDir)
	norm.UploadsDir = strings.TrimSpace(norm.UploadsDir)
	if norm.PageWaitSeconds <= 0 {
		norm.PageWaitSeconds = def.PageWaitSeconds
	}
	if norm.JobPauseSeconds == nil || *norm.JobPauseSeconds < 0 {
		norm.JobPauseSeconds = def.JobPauseSeconds
	}
	return norm
}

func (g GlobalSettings) JobPause() time.Duration {
	if g.JobPauseSeconds == nil || *g.JobPauseSeconds < 0 {
		return DefaultJobPauseSeconds * time.Second
	}
	return time.Duration(*g.JobPauseSeconds) * time.Second
}

// LedgerDirIn is the configured ledger directory, or <dataDir>/ledgers.
func (g GlobalSettings) LedgerDirIn(dataDir string) string {
	return firstNonEmpty(g.LedgerDir, filepath.Join(firstNonEmpty(dataDir, DefaultDataDir), DefaultLedgerDirName))
}

func (g GlobalSettings) UploadsDirIn(dataDir string) string {
	return firstNonEmpty(g.UploadsDir, filepath.Join(firstNonEmpty(dataDir, DefaultDataDir), DefaultUploadsDirName))
}

// ReadGlobalSettings never creates the registry; a missing file yields defaults.
func ReadGlobalSettings(configPath string) (GlobalSettings, error) {
	reg, err := loadRegistry(normalizeConfigPath(configPath))
	if err == nil {
		return reg.Global, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return defaultGlobalSettings(), nil
	}
	return GlobalSettings{}, err
}

func UpdateGlobalSettings(configPath string, global GlobalSettings) (GlobalSettings, error) {
	configPath = normalizeConfigPath(configPath)
	reg, _, err := EnsureRegistry(configPath)
	if err != nil {
		return GlobalSettings{}, err
	}
	if p := strings.TrimSpace(global.Proxy); p != "" {
		if _, _, err := browser.ParseProxy(p); err != nil {
			return GlobalSettings{}, err
		}
	}
	if global.PageWaitSeconds < 0 {
		return GlobalSettings{}, fmt.Errorf("page wait must be >= 0 seconds")
	}
	if global.JobPauseSeconds != nil && *global.JobPauseSeconds < 0 {
		return GlobalSettings{}, fmt.Errorf("job pause must be >= 0 seconds")
	}
	reg.Global = normalizeGlobalSettings(global)
	reg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := saveRegistry(configPath, reg); err != nil {
		return GlobalSettings{}, err
	}
	return reg.Global, nil
}

// ResolveRunSettings applies the cascade flag, then account, then global, then built-in default.
func ResolveRunSettings(account Account, global GlobalSettings, dataDir string, o RunOverrides) (RunSettings, error) {
	if o.MaxApplications < 0 {
		return RunSettings{}, fmt.Errorf("max applications must be >= 0")
	}
	g := normalizeGlobalSettings(global)

	keyword := firstNonEmpty(o.Keyword, account.Keyword)
	if keyword == "" {
		return RunSettings{}, fmt.Errorf("account %q has no keyword", account.Name)
	}
	headless := *g.Headless
	if o.Headless != nil {
		headless = *o.Headless
	}
	proxy := firstNonEmpty(o.Proxy, g.Proxy)
	if proxy != "" {
		if _, _, err := browser.ParseProxy(proxy); err != nil {
			return RunSettings{}, err
		}
	}

	return RunSettings{
		Account:         account,
		Username:        account.Username,
		Keyword:         keyword,
		Location:        firstNonEmpty(o.Location, account.Location),
		MaxApplications: firstPositive(o.MaxApplications, account.MaxApplications, DefaultMaxApplications),
		Headless:        headless,
		Proxy:           proxy,
		LedgerPath:      runstore.LedgerPath(g.LedgerDirIn(dataDir), account.Username),
		PageWait:        time.Duration(g.PageWaitSeconds) * time.Second,
		JobPause:        g.JobPause(),
	}, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
