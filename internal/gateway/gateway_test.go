package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfabric/gateway/internal/agentmodel"
	"github.com/streamfabric/gateway/internal/config"
)

func testGateway(t *testing.T, starter agentmodel.Starter) *Gateway {
	t.Helper()
	cfg := config.Default()
	g := New(cfg, Deps{Starter: starter})
	return g
}

func TestGateway_Health_ReportsOK(t *testing.T) {
	g := testGateway(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestGateway_UnknownRoute_Returns404Envelope(t *testing.T) {
	g := testGateway(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_ChatStart_RequiresInput(t *testing.T) {
	g := testGateway(t, &agentmodel.FakeStarter{Interval: time.Millisecond})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateway_ChatStart_RegistersRunAndAllowsInfoLookup(t *testing.T) {
	g := testGateway(t, &agentmodel.FakeStarter{Interval: time.Millisecond})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(`{"input":"hello world"}`))
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	runID, _ := started["runId"].(string)
	require.NotEmpty(t, runID)

	// Register records the run entry synchronously; this pause only lets the
	// background consumer start reading the run's events
	time.Sleep(10 * time.Millisecond)

	infoReq := httptest.NewRequest(http.MethodGet, "/api/v1/chat/"+runID, nil)
	infoRec := httptest.NewRecorder()
	g.router.ServeHTTP(infoRec, infoReq)
	assert.Equal(t, http.StatusOK, infoRec.Code)
}

func TestGateway_ChatInfo_UnknownRunReturns404(t *testing.T) {
	g := testGateway(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/does-not-exist", nil)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_Config_ExposesPublicView(t *testing.T) {
	g := testGateway(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "host")
	assert.Contains(t, body, "limits")
}

func TestGateway_AdmissionMiddleware_RejectsPastPerIPCap(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxConnectionsPerIP = 1
	g := New(cfg, Deps{})

	// the table slot is held only for the request's lifetime, so drive two
	// requests whose handler blocks until both are in flight concurrently.
	blocking := make(chan struct{})
	release := make(chan struct{})
	g.router.Get("/slow", func(req *Request, resp *Response) {
		close(blocking)
		<-release
		resp.JSON(http.StatusOK, map[string]any{"ok": true})
	})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/slow", nil)
		req.RemoteAddr = "10.0.0.1:1111"
		rec := httptest.NewRecorder()
		g.router.ServeHTTP(rec, req)
		done <- rec
	}()

	<-blocking
	req2 := httptest.NewRequest(http.MethodGet, "/slow", nil)
	req2.RemoteAddr = "10.0.0.1:2222"
	rec2 := httptest.NewRecorder()
	g.router.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusServiceUnavailable, rec2.Code)

	close(release)
	rec1 := <-done
	assert.Equal(t, http.StatusOK, rec1.Code)
}

func TestGateway_StartStop_BindsEphemeralPortAndShutsDownGracefully(t *testing.T) {
	g := testGateway(t, nil)
	require.NoError(t, g.Start())
	assert.NotEmpty(t, g.Addr())

	assert.NoError(t, g.Stop(true, time.Second))
}
