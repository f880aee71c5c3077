package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"memgraph/domain/services/synthesis"
)

const maxRosterBody = 1 << 20

// BreakerConfig tunes the circuit breaker around gateway calls
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after most of a handful of calls failed
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// GatewayRoster lists agents from the runtime gateway's HTTP API. Calls go
// through a circuit breaker so a down gateway costs nothing once tripped.
type GatewayRoster struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGatewayRoster creates a gateway roster
func NewGatewayRoster(baseURL string, client *http.Client, cfg BreakerConfig, logger *zap.Logger) *GatewayRoster {
	if client == nil {
		client = http.DefaultClient
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "roster-gateway",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &GatewayRoster{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

// List implements ports.AgentRoster
func (r *GatewayRoster) List(ctx context.Context) ([]synthesis.Agent, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]synthesis.Agent), nil
}

// State reports the breaker state
func (r *GatewayRoster) State() gobreaker.State {
	return r.breaker.State()
}

func (r *GatewayRoster) fetch(ctx context.Context) ([]synthesis.Agent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/agents", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster gateway: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRosterBody))
	if err != nil {
		return nil, fmt.Errorf("roster gateway: %w", err)
	}

	var agents []synthesis.Agent
	if err := json.Unmarshal(body, &agents); err != nil {
		var doc struct {
			Agents []synthesis.Agent `json:"agents"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("roster gateway: decode: %w", err)
		}
		agents = doc.Agents
	}

	out := make([]synthesis.Agent, 0, len(agents))
	for _, agent := range agents {
		if strings.TrimSpace(agent.ID) != "" {
			out = append(out, agent)
		}
	}
	return out, nil
}
