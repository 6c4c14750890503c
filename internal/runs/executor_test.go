package runs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyapply/internal/automation"
	"easyapply/internal/browser"
	"easyapply/internal/model"
)

type stubLauncher struct {
	driver   browser.Driver
	err      error
	released bool
	opts     browser.LaunchOptions
}

func (l *stubLauncher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Driver, func(), error) {
	l.opts = opts
	if l.err != nil {
		return nil, nil, l.err
	}
	return l.driver, func() { l.released = true }, nil
}

// loginRejected fails at login; the embedded nil Driver is never reached.
type loginRejected struct {
	browser.Driver
}

func (loginRejected) Login(ctx context.Context, username, password string) error {
	return errors.New("invalid credentials")
}

func TestBrowserExecutor_LaunchFailure(t *testing.T) {
	var got []model.StatusSnapshot
	reporter := automation.ReporterFunc(func(s model.StatusSnapshot) { got = append(got, s) })
	exec := BrowserExecutor{Launcher: &stubLauncher{err: errors.New("chrome not found")}}

	res := exec.Execute(context.Background(), "r1", Request{
		Account:         "main",
		Username:        "jane@example.com",
		MaxApplications: 3,
		LedgerPath:      filepath.Join(t.TempDir(), "ledger.json"),
	}, reporter)

	assert.False(t, res.Success)
	assert.Equal(t, automation.ReasonLoginFailed, res.Reason)
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusError, got[0].Status)
	assert.True(t, got[0].Finished)
}

func TestBrowserExecutor_LoginRejectedReleasesBrowser(t *testing.T) {
	launcher := &stubLauncher{driver: loginRejected{}}
	exec := BrowserExecutor{Launcher: launcher, ChromePath: "/opt/chrome"}

	res := exec.Execute(context.Background(), "r2", Request{
		Account:         "main",
		Username:        "jane@example.com",
		MaxApplications: 3,
		Headless:        true,
		Proxy:           "10.0.0.1:3128",
		LedgerPath:      filepath.Join(t.TempDir(), "ledger.json"),
	}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, automation.ReasonLoginFailed, res.Reason)
	assert.True(t, launcher.released)
	assert.True(t, launcher.opts.Headless)
	assert.Equal(t, "/opt/chrome", launcher.opts.ChromePath)
	assert.Equal(t, "10.0.0.1:3128", launcher.opts.Proxy)
}
