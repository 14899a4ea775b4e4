package dashboard

import (
	"net/url"
	"time"
)

// DashboardConfig is the sealed configuration of the dashboard server.
//
// To get an instance, use LoadDashboardConfig or Unmarshal.
type DashboardConfig struct {
	serverPort     string
	policy         PolicyServiceConfig
	requestHistory TransactionServiceConfig
	upstream       UpstreamConfig
	clients        RateLimitConfig
	sessions       SessionConfig
}

// Port which the dashboard server listens.
func (c *DashboardConfig) ServerPort() string {
	return c.serverPort
}

// Endpoints of the Policy Management Service.
func (c *DashboardConfig) Policy() PolicyServiceConfig {
	return c.policy
}

// Endpoints of the Transaction Event Service.
func (c *DashboardConfig) RequestHistory() TransactionServiceConfig {
	return c.requestHistory
}

// How to talk with upstream services.
func (c *DashboardConfig) Upstream() UpstreamConfig {
	return c.upstream
}

// Rate limit applied to each client of the dashboard API.
func (c *DashboardConfig) Clients() RateLimitConfig {
	return c.clients
}

func (c *DashboardConfig) Sessions() SessionConfig {
	return c.sessions
}

type PolicyServiceConfig struct {
	BaseUrl *url.URL

	GetPolicyPath         string
	DeletePolicyPath      string
	GetDraftPolicyPath    string
	UpdateDraftPolicyPath string
	GetCurrentPolicyPath  string
	GetPolicyHistoryPath  string
	PublishPolicyPath     string
	DistributePolicyPath  string
}

type TransactionServiceConfig struct {
	BaseUrl *url.URL

	GetTransactionsPath       string
	GetTransactionDetailsPath string
	GetMetricsPath            string
}

type UpstreamConfig struct {
	// Timeout of each request to upstream services.
	Timeout time.Duration

	// Retry policy for idempotent requests.
	Retry RetryConfig

	// Rate limit of requests to upstream services, shared by all clients.
	RateLimit RateLimitConfig
}

type RetryConfig struct {
	// Max count of retries. 0 disables retrying.
	Attempts int

	// Wait before first retry.
	Interval time.Duration

	// Multiplier of Interval for each following retry.
	Multiplier float64
}

type RateLimitConfig struct {
	// Requests per second. 0 means unlimited.
	PerSecond float64

	// Max burst.
	Burst int
}

// Unlimited tells rate limiting is disabled.
func (r RateLimitConfig) Unlimited() bool {
	return r.PerSecond <= 0
}

type SessionConfig struct {
	// Sessions idle longer than TTL are closed.
	TTL time.Duration

	// Key to sign session tokens. nil when not configured.
	SigningKey []byte

	// Default time window of transaction history sessions, ending at "now".
	HistoryWindow time.Duration
}
