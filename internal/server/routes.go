package server

import (
	"net/http"

	"github.com/berfenger/chargectl/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/status", s.StatusHandler)
	if s.metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, s.requestTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

type StatusView struct {
	Ticks              uint64   `json:"ticks"`
	Telemetry          bool     `json:"telemetry"`
	Window             string   `json:"window"`
	Period             string   `json:"period"`
	State              string   `json:"state"`
	PreviousState      string   `json:"previous_state"`
	OutputPriority     string   `json:"output_priority"`
	ChargeCurrent      float64  `json:"charge_current"`
	EstimatedSoC       float64  `json:"estimated_soc"`
	SoC                int      `json:"soc"`
	Voltage            float64  `json:"voltage"`
	Load               float64  `json:"load"`
	TargetSoC          int      `json:"target_soc"`
	DailyChargeCurrent int      `json:"daily_charge_current"`
	Throttled          bool     `json:"throttled"`
	WritePriority      *string  `json:"write_priority,omitempty"`
	WriteChargeCurrent *float64 `json:"write_charge_current,omitempty"`
}

func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetControlStatusRequest{}, s.requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	response, ok := res.(domain.GetControlStatusResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": response.GetResponseError().Error()})
	}
	if response.Result == nil {
		// no tick completed yet
		return c.JSON(http.StatusAccepted, StatusView{})
	}
	return c.JSON(http.StatusOK, statusView(response))
}

func statusView(resp domain.GetControlStatusResponse) StatusView {
	r := resp.Result
	view := StatusView{
		Ticks:              resp.Ticks,
		Telemetry:          r.Telemetry,
		Window:             r.Window,
		Period:             r.Period.String(),
		State:              r.State.String(),
		PreviousState:      r.PreviousState.String(),
		OutputPriority:     r.Priority.String(),
		ChargeCurrent:      r.ChargeCurrent,
		EstimatedSoC:       r.EstimatedSoC,
		SoC:                r.RawSoC,
		Voltage:            r.Voltage,
		Load:               r.Load,
		TargetSoC:          r.Target.TargetSoC,
		DailyChargeCurrent: r.Target.DailyChargeCurrent,
		Throttled:          r.TargetThrottled,
		WriteChargeCurrent: r.Writes.ChargeCurrent,
	}
	if r.Writes.Priority != nil {
		p := r.Writes.Priority.String()
		view.WritePriority = &p
	}
	return view
}
