package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"easyapply/internal/browser"
	"easyapply/internal/ledger"
	"easyapply/internal/model"
	"easyapply/internal/runs"
	"easyapply/internal/runstore"
	"easyapply/internal/workspace"
)

var allowedResumeExt = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type startFilters struct {
	PostedDate    string `json:"posted_date"`
	ThirdParty    bool   `json:"third_party"`
	Remote        *bool  `json:"remote"`
	ReplaceResume bool   `json:"replace_resume"`
}

type startRequest struct {
	Account         string       `json:"account"`
	Username        string       `json:"username" binding:"required"`
	Password        string       `json:"password" binding:"required"`
	Keyword         string       `json:"keyword" binding:"required"`
	Location        string       `json:"location"`
	MaxApplications int          `json:"max_applications" binding:"required,min=1"`
	Proxy           string       `json:"proxy"`
	Filters         startFilters `json:"filters"`
}

type jobsRequest struct {
	Username string `json:"username" form:"username"`
}

type markAppliedRequest struct {
	Username   string           `json:"username"`
	JobSummary *model.JobSummary `json:"job_summary" binding:"required"`
}

func (s *Server) index(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "ui not available")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// uploadResume stores the "resume" form file and makes it the resume for later runs.
func (s *Server) uploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	file, err := c.FormFile("resume")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the 10MB limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	if strings.TrimSpace(file.Filename) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	if file.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds the 10MB limit"})
		return
	}
	name := safeFilename(file.Filename)
	if !allowedResumeExt[strings.ToLower(filepath.Ext(name))] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}

	global, err := workspace.ReadGlobalSettings(s.opts.ConfigPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read settings: " + err.Error()})
		return
	}
	dir := global.UploadsDirIn(s.opts.DataDir)
	if err := runstore.Mkdir(dir); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file: " + err.Error()})
		return
	}
	dst := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file: " + err.Error()})
		return
	}
	s.setResume(dst)
	s.log.Info("resume uploaded", "path", dst, "bytes", file.Size)

	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"filename": name,
		"path":     dst,
	})
}

func (s *Server) startRun(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: " + err.Error()})
		return
	}

	postedDate := strings.ToUpper(strings.TrimSpace(req.Filters.PostedDate))
	remote := true
	if req.Filters.Remote != nil {
		remote = *req.Filters.Remote
	}
	filters := model.Filters{
		PostedDate:    postedDate,
		ThirdParty:    req.Filters.ThirdParty,
		Remote:        remote,
		ReplaceResume: req.Filters.ReplaceResume,
	}
	if filters.ReplaceResume {
		resume := s.currentResume()
		if resume == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a resume first"})
			return
		}
		if _, err := os.Stat(resume); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload a resume first"})
			return
		}
		filters.ResumePath = resume
	}
	if _, _, err := browser.ParseProxy(req.Proxy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	global, err := workspace.ReadGlobalSettings(s.opts.ConfigPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read settings: " + err.Error()})
		return
	}
	proxy := strings.TrimSpace(req.Proxy)
	if proxy == "" {
		proxy = global.Proxy
	}

	runID, err := s.opts.Runs.Start(runs.Request{
		Account:         strings.TrimSpace(req.Account),
		Username:        strings.TrimSpace(req.Username),
		Password:        req.Password,
		Keyword:         strings.TrimSpace(req.Keyword),
		Location:        strings.TrimSpace(req.Location),
		MaxApplications: req.MaxApplications,
		Filters:         filters,
		Proxy:           proxy,
		Headless:        global.Headless == nil || *global.Headless,
		LedgerPath:      runstore.LedgerPath(global.LedgerDirIn(s.opts.DataDir), req.Username),
		PageWait:        time.Duration(global.PageWaitSeconds) * time.Second,
		JobPause:        global.JobPause(),
		Trigger:         "web",
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, runs.ErrAccountBusy):
			status = http.StatusConflict
		case errors.Is(err, runs.ErrClosed):
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":         "Automation started!",
		"run_id":          runID,
		"filters_applied": filters,
		"resume_path":     filters.ResumePath,
	})
}

func (s *Server) runStatus(c *gin.Context) {
	v, err := s.opts.Runs.Get(c.Param("run_id"))
	if err != nil {
		if errors.Is(err, runs.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

// latestStatus reports the newest run, or idle when nothing ran yet.
func (s *Server) latestStatus(c *gin.Context) {
	list, err := s.opts.Runs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(list) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "idle", "message": "", "jobs_processed": 0, "applications_submitted": 0})
		return
	}
	c.JSON(http.StatusOK, list[0])
}

func (s *Server) listRuns(c *gin.Context) {
	list, err := s.opts.Runs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": list})
}

func (s *Server) listJobs(c *gin.Context) {
	var req jobsRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
			return
		}
	} else if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store, err := s.ledgerFor(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	entries := store.All()
	c.JSON(http.StatusOK, gin.H{
		"ledger_path": store.Path(),
		"stats":       ledger.Summarize(entries),
		"jobs":        entries,
	})
}

// markApplied flags an existing ledger entry as applied. It never adds one.
func (s *Server) markApplied(c *gin.Context) {
	var req markAppliedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	store, err := s.ledgerFor(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	updated, err := store.MarkAppliedLocked(runstore.LocksDir(s.opts.DataDir), req.Username, *req.JobSummary)
	if errors.Is(err, runstore.ErrAccountLocked) {
		c.JSON(http.StatusConflict, gin.H{"error": "A run is active for this account. Try again after it finishes.", "detail": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (s *Server) ledgerFor(username string) (*ledger.Store, error) {
	global, err := workspace.ReadGlobalSettings(s.opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return ledger.NewStore(runstore.LedgerPath(global.LedgerDirIn(s.opts.DataDir), username))
}

func safeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "resume"
	}
	return base
}
