package dashboard_test

import (
	"errors"
	"testing"
	"time"

	kcf "github.com/glasswall/icap-management-ui/pkg/configs/dashboard"
)

func TestLoadDashboardConfig(t *testing.T) {
	t.Run("it can be created from a config file", func(t *testing.T) {
		result, err := kcf.LoadDashboardConfig("./testdata/config.yaml")
		if err != nil {
			t.Fatalf("failed to parse config.: %v", err)
		}

		if result.ServerPort() != "8090" {
			t.Errorf("unmatch serverport:%s, expected:%s", result.ServerPort(), "8090")
		}

		policy := result.Policy()
		if got := policy.BaseUrl.String(); got != "http://policy-management-api:8080" {
			t.Errorf("unmatch policy base url: %s", got)
		}
		if policy.GetCurrentPolicyPath != "/api/v1/policy/current" {
			t.Errorf("unmatch current policy path: %s", policy.GetCurrentPolicyPath)
		}
		if policy.GetDraftPolicyPath != "/api/v1/policy/draft" {
			t.Errorf("default is not applied for draft policy path: %s", policy.GetDraftPolicyPath)
		}

		history := result.RequestHistory()
		if got := history.BaseUrl.String(); got != "https://transaction-event-api.icap.svc:8443/root" {
			t.Errorf("unmatch transaction base url: %s", got)
		}
		if history.GetTransactionsPath != "/api/v1/transactions" {
			t.Errorf("default is not applied for transactions path: %s", history.GetTransactionsPath)
		}

		upstream := result.Upstream()
		if upstream.Timeout != 10*time.Second {
			t.Errorf("unmatch timeout: %s", upstream.Timeout)
		}
		if upstream.Retry != (kcf.RetryConfig{Attempts: 3, Interval: 100 * time.Millisecond, Multiplier: 1.5}) {
			t.Errorf("unmatch retry: %+v", upstream.Retry)
		}
		if upstream.RateLimit != (kcf.RateLimitConfig{PerSecond: 50, Burst: 100}) {
			t.Errorf("unmatch rate limit: %+v", upstream.RateLimit)
		}

		if clients := result.Clients(); clients != (kcf.RateLimitConfig{PerSecond: 20, Burst: 20}) {
			t.Errorf("unmatch client rate limit: %+v", clients)
		}

		sessions := result.Sessions()
		if sessions.TTL != 15*time.Minute || sessions.HistoryWindow != time.Hour {
			t.Errorf("unmatch sessions: %+v", sessions)
		}
		if string(sessions.SigningKey) != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unmatch signing key: %s", sessions.SigningKey)
		}
	})
}

func TestUnmarshal(t *testing.T) {
	t.Run("minimal config is filled with defaults", func(t *testing.T) {
		conf, err := kcf.Unmarshal([]byte(`
policy:
  policyManagementServiceBaseUrl: http://policy:80
requestHistory:
  transactionEventServiceBaseUrl: http://transactions:80
`))
		if err != nil {
			t.Fatal(err)
		}

		if conf.ServerPort() != "8080" {
			t.Errorf("unmatch port: %s", conf.ServerPort())
		}
		if conf.Upstream().Timeout != 30*time.Second {
			t.Errorf("unmatch timeout: %s", conf.Upstream().Timeout)
		}
		if conf.Upstream().Retry.Attempts != 2 {
			t.Errorf("unmatch retry: %+v", conf.Upstream().Retry)
		}
		if !conf.Upstream().RateLimit.Unlimited() || !conf.Clients().Unlimited() {
			t.Errorf("rate limits should be unlimited by default")
		}
		if conf.Sessions().SigningKey != nil {
			t.Errorf("signing key should not be set")
		}
		if conf.Sessions().TTL != 30*time.Minute || conf.Sessions().HistoryWindow != 24*time.Hour {
			t.Errorf("unmatch sessions: %+v", conf.Sessions())
		}
	})

	t.Run("retry can be disabled explicitly", func(t *testing.T) {
		conf, err := kcf.Unmarshal([]byte(`
policy:
  policyManagementServiceBaseUrl: http://policy:80
requestHistory:
  transactionEventServiceBaseUrl: http://transactions:80
upstream:
  retry:
    attempts: 0
`))
		if err != nil {
			t.Fatal(err)
		}
		if conf.Upstream().Retry.Attempts != 0 {
			t.Errorf("unmatch retry: %+v", conf.Upstream().Retry)
		}
	})

	for name, content := range map[string]string{
		"empty": ``,
		"missing policy": `
requestHistory:
  transactionEventServiceBaseUrl: http://transactions:80
`,
		"missing request history": `
policy:
  policyManagementServiceBaseUrl: http://policy:80
`,
		"relative base url": `
policy:
  policyManagementServiceBaseUrl: policy:80/api
requestHistory:
  transactionEventServiceBaseUrl: http://transactions:80
`,
		"hostless base url": `
policy:
  policyManagementServiceBaseUrl: http://policy:80
requestHistory:
  transactionEventServiceBaseUrl: http://:80
`,
		"negative retry": `
policy:
  policyManagementServiceBaseUrl: http://policy:80
requestHistory:
  transactionEventServiceBaseUrl: http://transactions:80
upstream:
  retry:
    attempts: -1
`,
		"short signing key": `
policy:
  policyManagementServiceBaseUrl: http://policy:80
requestHistory:
  transactionEventServiceBaseUrl: http://transactions:80
sessions:
  signingKey: "c2hvcnQ="
`,
	} {
		t.Run("it rejects config: "+name, func(t *testing.T) {
			_, err := kcf.Unmarshal([]byte(content))
			if !errors.Is(err, kcf.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, but got %v", err)
			}
		})
	}
}
