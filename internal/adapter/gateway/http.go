package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/core/port"

	"go.uber.org/zap"
)

const (
	PATH_LIMITED_REGISTERS   = "/limited_registers"
	PATH_SET_CHARGE_CURRENT  = "/set_charge_current"
	PATH_SET_OUTPUT_PRIORITY = "/set_output_priority"
	maxResponseBodyBytes     = 1 << 16
)

// HTTPGateway talks to the register API service that owns the serial link.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

type commandRequest struct {
	Value any `json:"value"`
}

type commandResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPGateway(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(zap.String("gateway", "http")),
	}
}

func (g *HTTPGateway) Open() error {
	return nil
}

func (g *HTTPGateway) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

func (g *HTTPGateway) FetchReading(ctx context.Context) (*domain.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+PATH_LIMITED_REGISTERS, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTelemetryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: register api returned %s", domain.ErrTelemetryUnavailable, resp.Status)
	}

	var regs map[string]int
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes)).Decode(&regs); err != nil {
		return nil, fmt.Errorf("%w: decode registers: %w", domain.ErrTelemetryUnavailable, err)
	}
	g.logger.Debug("fetched registers", zap.Any("registers", regs))
	return domain.ReadingFromRegisters(regs)
}

func (g *HTTPGateway) SetChargeCurrent(ctx context.Context, amps float64) error {
	return g.command(ctx, PATH_SET_CHARGE_CURRENT, amps)
}

func (g *HTTPGateway) SetOutputPriority(ctx context.Context, priority domain.OutputPriority) error {
	return g.command(ctx, PATH_SET_OUTPUT_PRIORITY, priority.String())
}

func (g *HTTPGateway) command(ctx context.Context, path string, value any) error {
	body, err := json.Marshal(commandRequest{Value: value})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", domain.ErrActuatorRejected, path, resp.Status)
	}

	var cr commandResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes)).Decode(&cr); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	if !cr.Success {
		return fmt.Errorf("%w: %s: %s", domain.ErrActuatorRejected, path, cr.Message)
	}
	g.logger.Debug("command applied", zap.String("path", path), zap.Any("value", value))
	return nil
}

// ensure interface compliance
var _ port.Gateway = (*HTTPGateway)(nil)
