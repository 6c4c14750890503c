package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"easyapply/internal/model"
	"easyapply/internal/runstore"
)

const accountsSchemaVersion = 1

var (
	ErrNoAccountsConfigured  = errors.New("no accounts configured")
	ErrAccountSelectRequired = errors.New("account selection required")
)

type AccountFilters struct {
	PostedDate    string `json:"posted_date,omitempty"`
	ThirdParty    bool   `json:"third_party,omitempty"`
	Remote        *bool  `json:"remote,omitempty"`
	ReplaceResume bool   `json:"replace_resume,omitempty"`
}

// Account is one Dice login plus the search it runs. The password is never stored;
// PasswordEnv names the environment variable that holds it.
type Account struct {
	Name            string         `json:"name"`
	Username        string         `json:"username"`
	PasswordEnv     string         `json:"password_env,omitempty"`
	Keyword         string         `json:"keyword"`
	Location        string         `json:"location,omitempty"`
	MaxApplications int            `json:"max_applications,omitempty"`
	Filters         AccountFilters `json:"filters"`
	ResumePath      string         `json:"resume_path,omitempty"`
	Schedule        string         `json:"schedule,omitempty"`
	Active          *bool          `json:"active,omitempty"`
}

type Registry struct {
	SchemaVersion int            `json:"schema_version"`
	UpdatedAt     string         `json:"updated_at"`
	Global        GlobalSettings `json:"global,omitempty"`
	Accounts      []Account      `json:"accounts"`
}

type AddAccountOptions struct {
	ConfigPath          string
	Name                string
	Username            string
	PasswordEnv         string
	Keyword             string
	Location            string
	MaxApplications     int
	PostedDate          string
	ThirdParty          bool
	Remote              *bool
	ReplaceResume       bool
	ResumePath          string
	Schedule            string
	Active              *bool
	ReplaceIfNameExists bool
}

type AddAccountResult struct {
	Account Account
	Created bool
}

type RemoveAccountResult struct {
	Account Account
	Removed bool
}

type ListAccountsResult struct {
	ConfigPath string
	Accounts   []Account
}

func normalizeConfigPath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultAccountsConfigPath
	}
	return p
}

// EnsureRegistry loads the registry, creating an empty one when the file is missing.
func EnsureRegistry(configPath string) (Registry, bool, error) {
	path := normalizeConfigPath(configPath)
	reg, err := loadRegistry(path)
	if err == nil {
		return reg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Registry{}, false, err
	}

	reg = Registry{
		SchemaVersion: accountsSchemaVersion,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
		Global:        defaultGlobalSettings(),
		Accounts:      []Account{},
	}
	if err := saveRegistry(path, reg); err != nil {
		return Registry{}, false, err
	}
	return reg, true, nil
}

func AddAccount(opts AddAccountOptions) (AddAccountResult, error) {
	configPath := normalizeConfigPath(opts.ConfigPath)
	reg, _, err := EnsureRegistry(configPath)
	if err != nil {
		return AddAccountResult{}, err
	}

	username := strings.TrimSpace(opts.Username)
	if username == "" {
		return AddAccountResult{}, fmt.Errorf("username is required")
	}
	keyword := strings.TrimSpace(opts.Keyword)
	if keyword == "" {
		return AddAccountResult{}, fmt.Errorf("keyword is required")
	}
	if opts.MaxApplications < 0 {
		return AddAccountResult{}, fmt.Errorf("max applications must be >= 0")
	}
	postedDate := strings.ToUpper(strings.TrimSpace(opts.PostedDate))
	if !postedDateValues[postedDate] {
		return AddAccountResult{}, fmt.Errorf("posted date must be one of: ONE, THREE, SEVEN (or empty for any date)")
	}
	if opts.ReplaceResume && strings.TrimSpace(opts.ResumePath) == "" {
		return AddAccountResult{}, fmt.Errorf("replace resume requires a resume path")
	}
	for _, a := range reg.Accounts {
		if strings.EqualFold(a.Username, username) && !equalsFoldAndTrim(a.Name, opts.Name) {
			return AddAccountResult{}, fmt.Errorf("username already used by account %q", a.Name)
		}
	}

	explicitName := canonicalAccountName(opts.Name)
	name := explicitName
	if name == "" {
		name = suggestAccountName(username)
	}
	if explicitName == "" {
		name = ensureUniqueAccountName(name, reg.Accounts, opts.ReplaceIfNameExists)
	}
	if name == "" {
		return AddAccountResult{}, fmt.Errorf("account name is required")
	}

	account := Account{
		Name:            name,
		Username:        username,
		PasswordEnv:     strings.TrimSpace(opts.PasswordEnv),
		Keyword:         keyword,
		Location:        strings.TrimSpace(opts.Location),
		MaxApplications: opts.MaxApplications,
		Filters: AccountFilters{
			PostedDate:    postedDate,
			ThirdParty:    opts.ThirdParty,
			Remote:        opts.Remote,
			ReplaceResume: opts.ReplaceResume,
		},
		ResumePath: strings.TrimSpace(opts.ResumePath),
		Schedule:   strings.TrimSpace(opts.Schedule),
		Active:     opts.Active,
	}
	account = normalizeAccount(account)

	created := true
	replaced := false
	for i := range reg.Accounts {
		if strings.EqualFold(reg.Accounts[i].Name, name) {
			if !opts.ReplaceIfNameExists {
				return AddAccountResult{}, fmt.Errorf("account %q already exists (use --replace)", name)
			}
			reg.Accounts[i] = account
			created = false
			replaced = true
			break
		}
	}
	if !replaced {
		reg.Accounts = append(reg.Accounts, account)
	}

	sort.Slice(reg.Accounts, func(i, j int) bool {
		return reg.Accounts[i].Name < reg.Accounts[j].Name
	})
	reg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := saveRegistry(configPath, reg); err != nil {
		return AddAccountResult{}, err
	}
	return AddAccountResult{Account: account, Created: created}, nil
}

func RemoveAccount(configPath, name string) (RemoveAccountResult, error) {
	configPath = normalizeConfigPath(configPath)
	reg, _, err := EnsureRegistry(configPath)
	if err != nil {
		return RemoveAccountResult{}, err
	}

	target := canonicalAccountName(name)
	if target == "" {
		return RemoveAccountResult{}, fmt.Errorf("account name is required")
	}
	for i := range reg.Accounts {
		if strings.EqualFold(reg.Accounts[i].Name, target) {
			removed := reg.Accounts[i]
			reg.Accounts = append(reg.Accounts[:i], reg.Accounts[i+1:]...)
			reg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			if err := saveRegistry(configPath, reg); err != nil {
				return RemoveAccountResult{}, err
			}
			return RemoveAccountResult{Account: removed, Removed: true}, nil
		}
	}
	return RemoveAccountResult{}, fmt.Errorf("account %q not found", target)
}

func ListAccounts(configPath string) (ListAccountsResult, error) {
	configPath = normalizeConfigPath(configPath)
	reg, _, err := EnsureRegistry(configPath)
	if err != nil {
		return ListAccountsResult{}, err
	}
	accounts := append([]Account(nil), reg.Accounts...)
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Name < accounts[j].Name
	})
	return ListAccountsResult{ConfigPath: configPath, Accounts: accounts}, nil
}

func FindAccount(configPath, name string) (Account, error) {
	reg, _, err := EnsureRegistry(configPath)
	if err != nil {
		return Account{}, err
	}
	target := canonicalAccountName(name)
	if target == "" {
		return Account{}, fmt.Errorf("account name is required")
	}
	for _, a := range reg.Accounts {
		if strings.EqualFold(a.Name, target) {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("account %q not found", target)
}

// ResolveAccountSelection returns the named accounts (comma-separated) or all of them.
func ResolveAccountSelection(configPath, names string, all, activeOnly bool) ([]Account, error) {
	reg, _, err := EnsureRegistry(configPath)
	if err != nil {
		return nil, err
	}
	if len(reg.Accounts) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAccountsConfigured, normalizeConfigPath(configPath))
	}

	if all {
		out := make([]Account, 0, len(reg.Accounts))
		for _, a := range reg.Accounts {
			if activeOnly && !IsActive(a) {
				continue
			}
			out = append(out, a)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no active accounts selected")
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}

	wanted := splitAndClean(names)
	if len(wanted) == 0 {
		return nil, fmt.Errorf("%w (--account <name> or --all)", ErrAccountSelectRequired)
	}
	index := make(map[string]Account, len(reg.Accounts))
	for _, a := range reg.Accounts {
		index[a.Name] = a
	}
	selected := make([]Account, 0, len(wanted))
	seen := make(map[string]bool)
	for _, n := range wanted {
		if seen[n] {
			continue
		}
		a, ok := index[n]
		if !ok {
			return nil, fmt.Errorf("account %q not found", n)
		}
		seen[n] = true
		if activeOnly && !IsActive(a) {
			continue
		}
		selected = append(selected, a)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no active accounts selected")
	}
	return selected, nil
}

func IsActive(a Account) bool {
	if a.Active == nil {
		return true
	}
	return *a.Active
}

// ModelFilters converts the stored filters; an unset remote flag means remote only.
func (a Account) ModelFilters() model.Filters {
	remote := true
	if a.Filters.Remote != nil {
		remote = *a.Filters.Remote
	}
	return model.Filters{
		PostedDate:    a.Filters.PostedDate,
		ThirdParty:    a.Filters.ThirdParty,
		Remote:        remote,
		ReplaceResume: a.Filters.ReplaceResume,
		ResumePath:    a.ResumePath,
	}
}

// Password reads the account password from its environment variable.
func (a Account) Password() (string, error) {
	env := strings.TrimSpace(a.PasswordEnv)
	if env == "" {
		return "", fmt.Errorf("account %q has no password_env configured", a.Name)
	}
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return "", fmt.Errorf("environment variable %s is not set", env)
	}
	return v, nil
}

func normalizeAccount(a Account) Account {
	a.Name = canonicalAccountName(a.Name)
	a.Username = strings.TrimSpace(a.Username)
	a.PasswordEnv = strings.TrimSpace(a.PasswordEnv)
	a.Keyword = strings.TrimSpace(a.Keyword)
	a.Location = strings.TrimSpace(a.Location)
	a.ResumePath = strings.TrimSpace(a.ResumePath)
	a.Schedule = strings.TrimSpace(a.Schedule)
	a.Filters.PostedDate = strings.ToUpper(strings.TrimSpace(a.Filters.PostedDate))
	if !postedDateValues[a.Filters.PostedDate] {
		a.Filters.PostedDate = PostedDateAny
	}
	if a.PasswordEnv == "" && a.Name != "" {
		a.PasswordEnv = defaultPasswordEnv(a.Name)
	}
	if a.Active == nil {
		a.Active = boolPtr(true)
	}
	if a.Filters.Remote == nil {
		a.Filters.Remote = boolPtr(true)
	}
	return a
}

// defaultPasswordEnv derives EASYAPPLY_PASSWORD_<NAME> from an account name.
func defaultPasswordEnv(name string) string {
	return "EASYAPPLY_PASSWORD_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func loadRegistry(path string) (Registry, error) {
	var reg Registry
	if err := runstore.ReadJSON(path, &reg); err != nil {
		return Registry{}, err
	}
	if reg.SchemaVersion == 0 {
		reg.SchemaVersion = accountsSchemaVersion
	}
	reg.Global = normalizeGlobalSettings(reg.Global)
	normalized := make([]Account, 0, len(reg.Accounts))
	for _, a := range reg.Accounts {
		a = normalizeAccount(a)
		if a.Name == "" || a.Username == "" {
			continue
		}
		normalized = append(normalized, a)
	}
	reg.Accounts = normalized
	return reg, nil
}

func saveRegistry(path string, reg Registry) error {
	reg.SchemaVersion = accountsSchemaVersion
	if strings.TrimSpace(reg.UpdatedAt) == "" {
		reg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	reg.Global = normalizeGlobalSettings(reg.Global)
	if reg.Accounts == nil {
		reg.Accounts = []Account{}
	}
	if err := runstore.Mkdir(filepath.Dir(path)); err != nil {
		return err
	}
	return runstore.WriteJSON(path, reg)
}

func boolPtr(v bool) *bool {
	b := v
	return &b
}

func intPtr(v int) *int {
	return &v
}

func splitAndClean(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := canonicalAccountName(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// suggestAccountName uses the local part of an email username.
func suggestAccountName(username string) string {
	u := strings.TrimSpace(username)
	if at := strings.Index(u, "@"); at > 0 {
		u = u[:at]
	}
	if name := canonicalAccountName(u); name != "" {
		return name
	}
	return "account"
}

func canonicalAccountName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash {
			b.WriteRune('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func ensureUniqueAccountName(base string, existing []Account, allowExisting bool) string {
	name := canonicalAccountName(base)
	if name == "" || allowExisting {
		return name
	}
	set := make(map[string]bool, len(existing))
	for _, a := range existing {
		set[strings.ToLower(strings.TrimSpace(a.Name))] = true
	}
	if !set[name] {
		return name
	}
	for i := 2; i < 10000; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if !set[candidate] {
			return candidate
		}
	}
	return ""
}

func equalsFoldAndTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
