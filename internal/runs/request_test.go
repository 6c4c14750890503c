package runs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyapply/internal/workspace"
)

func TestRequestForAccount(t *testing.T) {
	t.Setenv("EASYAPPLY_PASSWORD_MAIN", "s3cret")
	remote := false
	a := workspace.Account{
		Name:        "main",
		Username:    "jane@example.com",
		PasswordEnv: "EASYAPPLY_PASSWORD_MAIN",
		Keyword:     "golang",
		Location:    "Austin",
		Filters:     workspace.AccountFilters{PostedDate: "THREE", Remote: &remote},
	}

	req, err := RequestForAccount(a, workspace.GlobalSettings{PageWaitSeconds: 5}, "/data", workspace.RunOverrides{MaxApplications: 4}, "cli")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", req.Password)
	assert.Equal(t, 4, req.MaxApplications)
	assert.Equal(t, "THREE", req.Filters.PostedDate)
	assert.False(t, req.Filters.Remote)
	assert.Equal(t, 5*time.Second, req.PageWait)
	assert.Equal(t, time.Second, req.JobPause, "listings are paced one second apart by default")
	assert.Equal(t, "cli", req.Trigger)
	assert.Contains(t, req.LedgerPath, "processed_job_summary_list_jane_example_com.json")

	a.PasswordEnv = "EASYAPPLY_PASSWORD_UNSET_FOR_TEST"
	_, err = RequestForAccount(a, workspace.GlobalSettings{}, "/data", workspace.RunOverrides{}, "cli")
	require.Error(t, err)
}
