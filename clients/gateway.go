package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vitwit/circular/logger"
	"github.com/vitwit/circular/metrics"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 16 << 20

// GatewayConfig configures a GatewayClient
type GatewayConfig struct {
	BaseURL string
	Version string
	Timeout time.Duration

	// HTTPClient defaults to a client with no timeout of its own; calls are bounded
	// by Timeout through the request context.
	HTTPClient *http.Client

	// RequestsPerSecond caps outgoing calls. Zero disables the limiter.
	RequestsPerSecond float64

	Logger  logger.Logger
	Metrics metrics.Recorder
}

// GatewayClient talks to the NAG gateway. Every operation is a JSON POST to
// BaseURL followed by the operation name.
type GatewayClient struct {
	baseURL    string
	version    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
	metrics    metrics.Recorder
}

var _ Client = (*GatewayClient)(nil)

// NewGatewayClient creates a gateway client
func NewGatewayClient(cfg GatewayConfig) (*GatewayClient, error) {
	if cfg.BaseURL == "" {
		return nil, types.NewConfigError("gateway url is required", nil)
	}

	version := cfg.Version
	if version == "" {
		version = types.DefaultVersion
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultConfig().RequestTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &GatewayClient{
		baseURL:    cfg.BaseURL,
		version:    version,
		timeout:    timeout,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger.OrNoop(cfg.Logger),
		metrics:    metrics.OrNoop(cfg.Metrics),
	}, nil
}

// BaseURL returns the gateway URL operations are appended to
func (c *GatewayClient) BaseURL() string {
	return c.baseURL
}

// Query sends fields to op and decodes the gateway envelope. The body always carries
// the client version; a "Version" entry in fields is replaced. There is no retry: a
// failed call is reported to the caller as it happened.
func (c *GatewayClient) Query(ctx context.Context, op types.Operation, fields map[string]any) (*types.GatewayResponse, error) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["Version"] = c.version
	return c.do(ctx, op, body)
}

// Submit sends a built transaction to Circular_AddTransaction_.
// Fields go out exactly as the builder produced them.
func (c *GatewayClient) Submit(ctx context.Context, tx *types.Transaction) (*types.GatewayResponse, error) {
	if tx == nil {
		return nil, types.NewInvalidTransactionError("transaction is nil")
	}

	body := tx.Fields()
	body["Version"] = tx.Version
	if tx.Version == "" {
		body["Version"] = c.version
	}
	return c.do(ctx, types.OpAddTransaction, body)
}

// Close releases idle connections
func (c *GatewayClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *GatewayClient) do(ctx context.Context, op types.Operation, body map[string]any) (*types.GatewayResponse, error) {
	if op == "" {
		return nil, c.fail(op, ErrMissingOperation, types.NewFormatError("operation is required", nil))
	}

	start := time.Now()
	labels := map[string]string{"operation": op.String()}
	defer func() {
		c.metrics.ObserveLatency(metrics.GatewayRequest, time.Since(start), labels)
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, c.fail(op, ErrEncodeRequest, types.NewFormatError("failed to encode request", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(reqCtx); err != nil {
			return nil, c.fail(op, ErrRateLimited, types.NewNetworkError("rate limiter wait failed", err))
		}
	}

	url := c.baseURL + op.String()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, c.fail(op, ErrBuildRequest, types.NewNetworkError("failed to build request", err))
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("gateway request", map[string]any{
		"operation": op.String(),
		"url":       url,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(op, ErrTransport, types.NewNetworkError(fmt.Sprintf("%s: request failed", op), err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(op, ErrReadBody, types.NewNetworkError(fmt.Sprintf("%s: failed to read response", op), err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(op, ErrHTTPStatus, types.NewNetworkError(fmt.Sprintf("%s: unexpected http status %d", op, resp.StatusCode), nil))
	}

	parsed, err := utils.ParseGatewayResponse(raw)
	if err != nil {
		return nil, c.fail(op, ErrDecodeResponse, err)
	}

	c.metrics.IncCounter(metrics.GatewayRequest, map[string]string{
		"operation": op.String(),
		"state":     strconv.Itoa(parsed.Result),
	})
	c.logger.Debug("gateway response", map[string]any{
		"operation": op.String(),
		"result":    parsed.Result,
	})

	return parsed, nil
}

func (c *GatewayClient) fail(op types.Operation, reason string, err error) error {
	c.metrics.IncCounter(metrics.GatewayError, map[string]string{
		"operation": op.String(),
		"state":     reason,
	})
	c.logger.Warn("gateway call failed", map[string]any{
		"operation": op.String(),
		"reason":    reason,
		"error":     err,
	})
	return err
}
