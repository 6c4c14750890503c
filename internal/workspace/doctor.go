package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"easyapply/internal/browser"
	"easyapply/internal/runstore"
)

type DoctorOptions struct {
	DataDir    string
	ConfigPath string
	ChromePath string
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type InitWorkspaceOptions struct {
	DataDir    string
	ConfigPath string
	ChromePath string
}

type InitWorkspaceResult struct {
	DataDir        string       `json:"data_dir"`
	ConfigPath     string       `json:"config_path"`
	CreatedDataDir bool         `json:"created_data_dir"`
	CreatedConfig  bool         `json:"created_config"`
	DoctorResult   DoctorResult `json:"doctor"`
}

func Doctor(opts DoctorOptions) (DoctorResult, error) {
	dataDir := firstNonEmpty(opts.DataDir, DefaultDataDir)
	configPath := normalizeConfigPath(opts.ConfigPath)

	checks := make([]DoctorCheck, 0, 6)
	dep := browser.DependencyStatus(opts.ChromePath)
	checks = append(checks, DoctorCheck{
		Name:    "dependency:chrome",
		OK:      dep.ChromeFound,
		Message: dependencyMessage(dep.ChromeFound, dep.ChromePath, "chrome"),
	})

	for _, d := range []struct{ name, path string }{
		{"directory:config", filepath.Dir(configPath)},
		{"directory:runs", runstore.RunsDir(dataDir)},
		{"directory:locks", runstore.LocksDir(dataDir)},
	} {
		ok, msg := ensureWritableDir(d.path)
		checks = append(checks, DoctorCheck{Name: d.name, OK: ok, Message: msg})
	}

	global, err := ReadGlobalSettings(configPath)
	if err != nil {
		checks = append(checks, DoctorCheck{Name: "config:accounts", OK: false, Message: err.Error()})
	} else {
		ok, msg := ensureWritableDir(global.LedgerDirIn(dataDir))
		checks = append(checks, DoctorCheck{Name: "directory:ledgers", OK: ok, Message: msg})
		if global.Proxy != "" {
			check := DoctorCheck{Name: "config:proxy", OK: true, Message: "valid"}
			if p, _, err := browser.ParseProxy(global.Proxy); err != nil {
				check.OK = false
				check.Message = err.Error()
			} else {
				check.Message = "valid (" + p.Redacted() + ")"
			}
			checks = append(checks, check)
		}
	}

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}, nil
}

func InitWorkspace(opts InitWorkspaceOptions) (InitWorkspaceResult, error) {
	dataDir := firstNonEmpty(opts.DataDir, DefaultDataDir)
	configPath := normalizeConfigPath(opts.ConfigPath)

	createdDataDir := false
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		createdDataDir = true
	}
	if err := runstore.Mkdir(runstore.RunsDir(dataDir)); err != nil {
		return InitWorkspaceResult{}, err
	}

	_, createdConfig, err := EnsureRegistry(configPath)
	if err != nil {
		return InitWorkspaceResult{}, err
	}

	doc, err := Doctor(DoctorOptions{DataDir: dataDir, ConfigPath: configPath, ChromePath: opts.ChromePath})
	if err != nil {
		return InitWorkspaceResult{}, err
	}

	return InitWorkspaceResult{
		DataDir:        dataDir,
		ConfigPath:     configPath,
		CreatedDataDir: createdDataDir,
		CreatedConfig:  createdConfig,
		DoctorResult:   doc,
	}, nil
}

func dependencyMessage(ok bool, path, name string) string {
	if ok {
		return name + " found at " + path
	}
	return name + " not found (set EASYAPPLY_CHROME_PATH or install chrome/chromium)"
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runstore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "easyapply-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}
