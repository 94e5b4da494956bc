package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vesaa/procsentry/internal/models"
	"github.com/vesaa/procsentry/internal/monitor"
)

// adminCredentials are set at startup from config.
var adminUser, adminPass string

// SetAdminCredentials stores credentials for /api/login.
func SetAdminCredentials(user, pass string) {
	adminUser = user
	adminPass = pass
}

// sess is the monitoring session the handlers delegate to.
var sess *monitor.Session

// SetSession injects the running session; call this before registering routes.
func SetSession(s *monitor.Session) {
	sess = s
}

// RegisterRoutes wires up the full API on the given engine.
//
//	Public:             POST /api/login, GET /api/health, GET /metrics
//	Protected (JWT):    status, processes, report, train, reports
//	Protected (Bearer): POST /api/snapshots
func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", handleLogin)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", OperatorAuth())
	{
		auth.GET("/status", handleStatus)
		auth.GET("/processes", handleProcesses)
		auth.GET("/report", handleReport)
		auth.POST("/train", handleTrain)
		auth.GET("/reports", handleReportArchive)
	}

	// ── Ingest endpoint (external collectors) ─────────────────────────────────
	ingest := api.Group("/", IngestAuth())
	{
		ingest.POST("/snapshots", handleSnapshotIngest)
	}
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if body.Username != adminUser || body.Password != adminPass {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(authCfg.TokenTTL.Seconds()),
		"type":       "Bearer",
	})
}

// handleStatus returns detector state: trained flag, history fill, threshold.
func handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": sess.Status()})
}

// handleProcesses returns the most recent snapshot, suspicious flags included.
func handleProcesses(c *gin.Context) {
	snap, ok := sess.Latest()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"data": []models.ProcessRecord{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"taken_at": snap.TakenAt, "data": snap.Processes})
}

// handleReport runs detection on a fresh snapshot and returns the report.
// The report is archived before being returned.
func handleReport(c *gin.Context) {
	rep, err := sess.Report()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rep})
}

// handleTrain kicks off an asynchronous training run. Training is heavy and
// never runs on the request path; poll /api/status for completion.
func handleTrain(c *gin.Context) {
	// net/http cancels the request context the moment the 202 is written, so
	// the training goroutine must be detached from it or it aborts mid-run.
	if started := sess.TrainAsync(context.WithoutCancel(c.Request.Context())); !started {
		c.JSON(http.StatusConflict, gin.H{"error": "training already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"training": "started"})
}

// handleReportArchive lists archived reports, newest first.
//
//	GET /api/reports?limit=50
func handleReportArchive(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recs, err := ListReports(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs})
}

// handleSnapshotIngest accepts a pushed snapshot from an external collector.
func handleSnapshotIngest(c *gin.Context) {
	var payload struct {
		TakenAt   time.Time              `json:"taken_at"`
		Processes []models.ProcessRecord `json:"processes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.TakenAt.IsZero() {
		payload.TakenAt = time.Now()
	}

	sess.Ingest(models.Snapshot{TakenAt: payload.TakenAt, Processes: payload.Processes})
	c.JSON(http.StatusOK, gin.H{"accepted": len(payload.Processes)})
}
