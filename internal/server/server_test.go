package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubMaster(healthy bool, result *domain.TickResult) actor.ReceiveFunc {
	return func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy})
		case domain.GetControlStatusRequest:
			ctx.Respond(domain.GetControlStatusResponse{Ticks: 3, Result: result})
		}
	}
}

func newTestServer(t *testing.T, healthy bool, result *domain.TickResult) (*Server, *actor.ActorSystem) {
	as := actor.NewActorSystem()
	pid := as.Root.Spawn(actor.PropsFromFunc(stubMaster(healthy, result)))
	cfg := util.LoadTestConfig()
	return &Server{
		port:           cfg.Port,
		rootContext:    as.Root,
		masterActor:    pid,
		metricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("metrics")) }),
		requestTimeout: time.Second,
	}, as
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {

	s, as := newTestServer(t, true, nil)
	defer as.Shutdown()

	rec := get(s, "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())

	u, as2 := newTestServer(t, false, nil)
	defer as2.Shutdown()

	rec = get(u, "/healthcheck")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatus(t *testing.T) {

	current := 40.0
	s, as := newTestServer(t, true, &domain.TickResult{
		Telemetry:     true,
		Window:        "night",
		Period:        domain.PeriodCheap,
		PreviousState: domain.ControlStateSuspended,
		State:         domain.ControlStateCharging,
		Priority:      domain.OutputPriorityGridFirst,
		ChargeCurrent: 40,
		EstimatedSoC:  65.2,
		RawSoC:        65,
		Voltage:       53.2,
		Load:          2000,
		Target:        domain.DailyTarget{TargetSoC: 90, DailyChargeCurrent: 40},
		Writes:        domain.PendingWrites{ChargeCurrent: &current},
	})
	defer as.Shutdown()

	rec := get(s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var view StatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, uint64(3), view.Ticks)
	assert.Equal(t, "charging", view.State)
	assert.Equal(t, "suspended", view.PreviousState)
	assert.Equal(t, "grid_first", view.OutputPriority)
	assert.Equal(t, "cheap", view.Period)
	assert.Equal(t, 90, view.TargetSoC)
	assert.Nil(t, view.WritePriority)
	require.NotNil(t, view.WriteChargeCurrent)
	assert.Equal(t, 40.0, *view.WriteChargeCurrent)
}

func TestStatusBeforeFirstTick(t *testing.T) {

	s, as := newTestServer(t, true, nil)
	defer as.Shutdown()

	rec := get(s, "/status")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMetricsRoute(t *testing.T) {

	s, as := newTestServer(t, true, nil)
	defer as.Shutdown()

	rec := get(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}
