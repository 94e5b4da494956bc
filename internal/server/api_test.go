package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesaa/procsentry/internal/anomaly"
	"github.com/vesaa/procsentry/internal/config"
	"github.com/vesaa/procsentry/internal/models"
	"github.com/vesaa/procsentry/internal/monitor"
)

func testEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ConfigureAuth(AuthConfig{JWTSecret: "test-secret", IngestToken: "push-key"})
	SetAdminCredentials("admin", "hunter2")

	cfg := &config.Config{HistorySize: 3, PollInterval: 1}
	det := anomaly.NewDetector(anomaly.Config{HistorySize: 3}, zerolog.Nop())
	SetSession(monitor.New(cfg, nil, det, nil, zerolog.Nop()))

	r := gin.New()
	RegisterRoutes(r)
	return r
}

func TestLogin(t *testing.T) {
	r := testEngine(t)

	body := `{"username":"admin","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")
}

func TestLoginBadCredentials(t *testing.T) {
	r := testEngine(t)

	body := `{"username":"admin","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatusRequiresJWT(t *testing.T) {
	r := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := GenerateJWT("admin")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trained":false`)
}

func TestSnapshotIngest(t *testing.T) {
	r := testEngine(t)

	body := `{"processes":[{"pid":1,"name":"steady","cpu_percent":5}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/snapshots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer push-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accepted":1`)
	assert.Equal(t, 1, sess.Status().HistoryLen)
}

func TestSnapshotIngestRejectsBadToken(t *testing.T) {
	r := testEngine(t)

	body := `{"processes":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/snapshots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestTrainEndpointOutlivesRequest hits /api/train over a real HTTP server.
// net/http cancels the request context once the 202 response is written, so
// a run wired to that context would abort after a handful of epochs; the
// detector must end up trained regardless.
func TestTrainEndpointOutlivesRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ConfigureAuth(AuthConfig{JWTSecret: "test-secret", IngestToken: "push-key"})
	SetAdminCredentials("admin", "hunter2")

	cfg := &config.Config{HistorySize: 3, PollInterval: 1}
	det := anomaly.NewDetector(anomaly.Config{
		HistorySize: 3,
		// Enough epochs that the run comfortably outlasts the response
		// round-trip on any machine.
		Train: anomaly.TrainConfig{Epochs: 20000, BatchSize: 3, LearningRate: 0.001, Seed: 1},
	}, zerolog.Nop())
	SetSession(monitor.New(cfg, nil, det, nil, zerolog.Nop()))

	for i := 0; i < 3; i++ {
		jitter := 0.1 * float64(i)
		det.Observe(models.Snapshot{TakenAt: time.Now(), Processes: []models.ProcessRecord{
			{PID: 1, Name: "steady", CPUPercent: 5 + jitter, MemoryPercent: 5 + jitter,
				NumThreads: 4, NumConnections: 1, NumFiles: 3},
		}})
	}

	r := gin.New()
	RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := GenerateJWT("admin")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/train", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Eventually(t, det.Trained, 30*time.Second, 20*time.Millisecond,
		"training kicked off over HTTP never completed")
}

func TestHealthEndpointIsPublic(t *testing.T) {
	r := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
