package dashboard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("dashboard config: invalid")

// load dashboard config from a file.
//
// args:
//   - filepath: filepath refers a config file.
//
// returns *DashboardConfig, error:
//
//	When loading success, returns `(*DashboardConfig, nil)`.
//	Otherwise, returns `(nil, error)`.
func LoadDashboardConfig(filepath string) (*DashboardConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*DashboardConfig, error) {
	var m *DashboardConfigMarshall
	if err := yaml.Unmarshal(conf, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: empty", ErrInvalidConfig)
	}
	return m.TrySeal()
}

// DashboardConfigMarshall is the mutable, marshalling form of DashboardConfig.
type DashboardConfigMarshall struct {
	ServerPort     string                           `yaml:"serverPort"`
	Policy         *PolicyServiceConfigMarshall      `yaml:"policy"`
	RequestHistory *TransactionServiceConfigMarshall `yaml:"requestHistory"`
	Upstream       *UpstreamConfigMarshall           `yaml:"upstream,omitempty"`
	Clients        *ClientsConfigMarshall            `yaml:"clients,omitempty"`
	Sessions       *SessionConfigMarshall            `yaml:"sessions,omitempty"`
}

// verify configuration values and create the sealed version.
func (m *DashboardConfigMarshall) TrySeal() (*DashboardConfig, error) {
	return m.trySeal("(root)")
}

func (m *DashboardConfigMarshall) trySeal(path string) (*DashboardConfig, error) {
	port := m.ServerPort
	if port == "" {
		port = "8080"
	}

	if m.Policy == nil {
		return nil, fmt.Errorf("%w: %s.policy is required", ErrInvalidConfig, path)
	}
	policy, err := m.Policy.trySeal(path + ".policy")
	if err != nil {
		return nil, err
	}

	if m.RequestHistory == nil {
		return nil, fmt.Errorf("%w: %s.requestHistory is required", ErrInvalidConfig, path)
	}
	history, err := m.RequestHistory.trySeal(path + ".requestHistory")
	if err != nil {
		return nil, err
	}

	upstream, err := m.Upstream.trySeal(path + ".upstream")
	if err != nil {
		return nil, err
	}

	clients := RateLimitConfig{}
	if m.Clients != nil {
		if clients, err = m.Clients.RateLimit.trySeal(path + ".clients.rateLimit"); err != nil {
			return nil, err
		}
	}

	sessions, err := m.Sessions.trySeal(path + ".sessions")
	if err != nil {
		return nil, err
	}

	return &DashboardConfig{
		serverPort:     port,
		policy:         policy,
		requestHistory: history,
		upstream:       upstream,
		clients:        clients,
		sessions:       sessions,
	}, nil
}

type PolicyServiceConfigMarshall struct {
	PolicyManagementServiceBaseUrl string `yaml:"policyManagementServiceBaseUrl"`
	GetPolicyPath                  string `yaml:"getPolicyPath,omitempty"`
	DeletePolicyPath               string `yaml:"deletePolicyPath,omitempty"`
	GetDraftPolicyPath             string `yaml:"getDraftPolicyPath,omitempty"`
	UpdateDraftPolicyPath          string `yaml:"updateDraftPolicyPath,omitempty"`
	GetCurrentPolicyPath           string `yaml:"getCurrentPolicyPath,omitempty"`
	GetPolicyHistoryPath           string `yaml:"getPolicyHistoryPath,omitempty"`
	PublishPolicyPath              string `yaml:"publishPolicyPath,omitempty"`
	DistributePolicyPath           string `yaml:"distributePolicyPath,omitempty"`
}

func (m *PolicyServiceConfigMarshall) trySeal(path string) (PolicyServiceConfig, error) {
	base, err := baseUrl(path+".policyManagementServiceBaseUrl", m.PolicyManagementServiceBaseUrl)
	if err != nil {
		return PolicyServiceConfig{}, err
	}

	return PolicyServiceConfig{
		BaseUrl:               base,
		GetPolicyPath:         orDefault(m.GetPolicyPath, "/api/v1/policy"),
		DeletePolicyPath:      orDefault(m.DeletePolicyPath, "/api/v1/policy"),
		GetDraftPolicyPath:    orDefault(m.GetDraftPolicyPath, "/api/v1/policy/draft"),
		UpdateDraftPolicyPath: orDefault(m.UpdateDraftPolicyPath, "/api/v1/policy/draft"),
		GetCurrentPolicyPath:  orDefault(m.GetCurrentPolicyPath, "/api/v1/policy/current"),
		GetPolicyHistoryPath:  orDefault(m.GetPolicyHistoryPath, "/api/v1/policy/history"),
		PublishPolicyPath:     orDefault(m.PublishPolicyPath, "/api/v1/policy/publish"),
		DistributePolicyPath:  orDefault(m.DistributePolicyPath, "/api/v1/policy/current/distribute-adaption-policy"),
	}, nil
}

type TransactionServiceConfigMarshall struct {
	TransactionEventServiceBaseUrl string `yaml:"transactionEventServiceBaseUrl"`
	GetTransactionsPath            string `yaml:"getTransactionsPath,omitempty"`
	GetTransactionDetailsPath      string `yaml:"getTransactionDetailsPath,omitempty"`
	GetMetricsPath                 string `yaml:"getMetricsPath,omitempty"`
}

func (m *TransactionServiceConfigMarshall) trySeal(path string) (TransactionServiceConfig, error) {
	base, err := baseUrl(path+".transactionEventServiceBaseUrl", m.TransactionEventServiceBaseUrl)
	if err != nil {
		return TransactionServiceConfig{}, err
	}

	return TransactionServiceConfig{
		BaseUrl:                   base,
		GetTransactionsPath:       orDefault(m.GetTransactionsPath, "/api/v1/transactions"),
		GetTransactionDetailsPath: orDefault(m.GetTransactionDetailsPath, "/api/v1/transactions"),
		GetMetricsPath:            orDefault(m.GetMetricsPath, "/api/v1/metrics"),
	}, nil
}

type UpstreamConfigMarshall struct {
	Timeout   time.Duration           `yaml:"timeout,omitempty"`
	Retry     *RetryConfigMarshall     `yaml:"retry,omitempty"`
	RateLimit *RateLimitConfigMarshall `yaml:"rateLimit,omitempty"`
}

// nil receiver is allowed; defaults are used.
func (m *UpstreamConfigMarshall) trySeal(path string) (UpstreamConfig, error) {
	if m == nil {
		m = &UpstreamConfigMarshall{}
	}

	timeout := m.Timeout
	if timeout < 0 {
		return UpstreamConfig{}, fmt.Errorf("%w: %s.timeout should not be negative", ErrInvalidConfig, path)
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retry, err := m.Retry.trySeal(path + ".retry")
	if err != nil {
		return UpstreamConfig{}, err
	}
	rate, err := m.RateLimit.trySeal(path + ".rateLimit")
	if err != nil {
		return UpstreamConfig{}, err
	}

	return UpstreamConfig{Timeout: timeout, Retry: retry, RateLimit: rate}, nil
}

type RetryConfigMarshall struct {
	Attempts   *int          `yaml:"attempts,omitempty"`
	Interval   time.Duration `yaml:"interval,omitempty"`
	Multiplier float64       `yaml:"multiplier,omitempty"`
}

// nil receiver is allowed; defaults are used.
func (m *RetryConfigMarshall) trySeal(path string) (RetryConfig, error) {
	if m == nil {
		m = &RetryConfigMarshall{}
	}
	attempts := 2
	if m.Attempts != nil {
		attempts = *m.Attempts
	}
	if attempts < 0 {
		return RetryConfig{}, fmt.Errorf("%w: %s.attempts should not be negative", ErrInvalidConfig, path)
	}
	interval := m.Interval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	mul := m.Multiplier
	if mul == 0 {
		mul = 2
	}
	if mul < 1 {
		return RetryConfig{}, fmt.Errorf("%w: %s.multiplier should be 1 or more", ErrInvalidConfig, path)
	}
	return RetryConfig{Attempts: attempts, Interval: interval, Multiplier: mul}, nil
}

type RateLimitConfigMarshall struct {
	PerSecond float64 `yaml:"perSecond,omitempty"`
	Burst     int     `yaml:"burst,omitempty"`
}

// nil receiver is allowed; it means unlimited.
func (m *RateLimitConfigMarshall) trySeal(path string) (RateLimitConfig, error) {
	if m == nil {
		return RateLimitConfig{}, nil
	}
	if m.PerSecond < 0 {
		return RateLimitConfig{}, fmt.Errorf("%w: %s.perSecond should not be negative", ErrInvalidConfig, path)
	}
	burst := m.Burst
	if burst <= 0 {
		burst = max(1, int(m.PerSecond))
	}
	return RateLimitConfig{PerSecond: m.PerSecond, Burst: burst}, nil
}

type ClientsConfigMarshall struct {
	RateLimit *RateLimitConfigMarshall `yaml:"rateLimit,omitempty"`
}

type SessionConfigMarshall struct {
	TTL           time.Duration `yaml:"ttl,omitempty"`
	SigningKey    string        `yaml:"signingKey,omitempty"`
	HistoryWindow time.Duration `yaml:"historyWindow,omitempty"`
}

// nil receiver is allowed; defaults are used.
func (m *SessionConfigMarshall) trySeal(path string) (SessionConfig, error) {
	if m == nil {
		m = &SessionConfigMarshall{}
	}

	ttl := m.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	window := m.HistoryWindow
	if window <= 0 {
		window = 24 * time.Hour
	}

	var key []byte
	if m.SigningKey != "" {
		k, err := base64.StdEncoding.DecodeString(m.SigningKey)
		if err != nil {
			return SessionConfig{}, fmt.Errorf("%w: %s.signingKey is not base64: %w", ErrInvalidConfig, path, err)
		}
		if len(k) < 32 {
			return SessionConfig{}, fmt.Errorf("%w: %s.signingKey should be 32 bytes or longer", ErrInvalidConfig, path)
		}
		key = k
	}

	return SessionConfig{TTL: ttl, SigningKey: key, HistoryWindow: window}, nil
}

func baseUrl(path string, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidConfig, path)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s should be absolute URL with host: %s", ErrInvalidConfig, path, raw)
	}
	return u, nil
}

func orDefault(s string, d string) string {
	if s == "" {
		return d
	}
	return s
}
