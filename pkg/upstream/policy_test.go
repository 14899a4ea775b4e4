package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	kcf "github.com/glasswall/icap-management-ui/pkg/configs/dashboard"
	"github.com/glasswall/icap-management-ui/pkg/upstream"
	"github.com/glasswall/icap-management-ui/pkg/utils/rfctime"
	"github.com/glasswall/icap-management-ui/pkg/utils/try"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func policyConfig(t *testing.T, base string) kcf.PolicyServiceConfig {
	t.Helper()
	return kcf.PolicyServiceConfig{
		BaseUrl:               try.To(url.Parse(base)).OrFatal(t),
		GetPolicyPath:         "/api/v1/policy",
		DeletePolicyPath:      "/api/v1/policy",
		GetDraftPolicyPath:    "/api/v1/policy/draft",
		UpdateDraftPolicyPath: "/api/v1/policy/draft",
		GetCurrentPolicyPath:  "/api/v1/policy/current",
		GetPolicyHistoryPath:  "/api/v1/policy/history",
		PublishPolicyPath:     "/api/v1/policy/publish",
		DistributePolicyPath:  "/api/v1/policy/current/distribute-adaption-policy",
	}
}

func examplePolicy(t *testing.T) policy.Policy {
	t.Helper()
	return policy.Policy{
		Id:         uuid.MustParse("6c4b6fa3-1c3b-4b4b-8a53-8d0f0f1e0a01"),
		PolicyType: policy.Draft,
		Created:    rfctime.From(time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)),
		UpdatedBy:  "admin",
		AdaptionPolicy: policy.AdaptionPolicy{
			ContentManagementFlags: policy.ContentManagementFlags{
				PdfContentManagement: policy.PdfContentManagement{
					Javascript: policy.Disallow,
					Metadata:   policy.Sanitise,
				},
			},
			NcfsRoute: policy.NcfsRoute{NcfsRoutingUrl: "http://ncfs.example.com"},
			NcfsActions: policy.NcfsActions{
				GlasswallBlockedFilesAction: policy.Relay,
			},
		},
		NcfsPolicy: policy.NcfsPolicy{
			NcfsActions: policy.NcfsActions{UnprocessableFileTypeAction: policy.Block},
		},
	}
}

// recorder is a fake upstream which records requests and answers with fixed response.
type recorder struct {
	status int
	body   any

	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, b)
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.status)
	if r.body != nil {
		json.NewEncoder(w).Encode(r.body)
	}
}

func (r *recorder) Requests() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.requests)
}

func (r *recorder) Bodies() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.bodies)
}

func TestPolicyManagementApi(t *testing.T) {
	ctx := context.Background()
	expected := examplePolicy(t)

	t.Run("GetPolicy sends id as query and returns the policy", func(t *testing.T) {
		rec := &recorder{status: http.StatusOK, body: expected}
		svr := httptest.NewServer(rec)
		defer svr.Close()

		testee := upstream.NewPolicyManagementApi(policyConfig(t, svr.URL))
		actual, err := testee.GetPolicy(ctx, expected.Id)
		if err != nil {
			t.Fatal(err)
		}
		if !actual.Equal(expected) {
			t.Errorf("unmatch policy:\n%s", cmp.Diff(expected, actual))
		}

		req := rec.Requests()[0]
		if req.Method != http.MethodGet || req.URL.Path != "/api/v1/policy" {
			t.Errorf("unexpected request: %s %s", req.Method, req.URL)
		}
		if id := req.URL.Query().Get("id"); id != expected.Id.String() {
			t.Errorf("unmatch id: %s", id)
		}
	})

	t.Run("GetCurrentPolicy and GetDraftPolicy call configured paths", func(t *testing.T) {
		rec := &recorder{status: http.StatusOK, body: expected}
		svr := httptest.NewServer(rec)
		defer svr.Close()

		testee := upstream.NewPolicyManagementApi(policyConfig(t, svr.URL+"/root"))
		if _, err := testee.GetCurrentPolicy(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := testee.GetDraftPolicy(ctx); err != nil {
			t.Fatal(err)
		}

		if p := rec.Requests()[0].URL.Path; p != "/root/api/v1/policy/current" {
			t.Errorf("unmatch path: %s", p)
		}
		if p := rec.Requests()[1].URL.Path; p != "/root/api/v1/policy/draft" {
			t.Errorf("unmatch path: %s", p)
		}
	})

	t.Run("GetPolicyHistory returns history", func(t *testing.T) {
		history := policy.History{TotalPolicies: 1, Policies: []policy.Policy{expected}}
		svr := httptest.NewServer(&recorder{status: http.StatusOK, body: history})
		defer svr.Close()

		testee := upstream.NewPolicyManagementApi(policyConfig(t, svr.URL))
		actual, err := testee.GetPolicyHistory(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !actual.Equal(history) {
			t.Errorf("unmatch history:\n%s", cmp.Diff(history, actual))
		}
	})

	t.Run("SaveDraftPolicy puts the policy as JSON", func(t *testing.T) {
		rec := &recorder{status: http.StatusNoContent}
		svr := httptest.NewServer(rec)
		defer svr.Close()

		testee := upstream.NewPolicyManagementApi(policyConfig(t, svr.URL))
		if err := testee.SaveDraftPolicy(ctx, expected); err != nil {
			t.Fatal(err)
		}

		req := rec.Requests()[0]
		if req.Method != http.MethodPut || req.URL.Path != "/api/v1/policy/draft" {
			t.Errorf("unexpected request: %s %s", req.Method, req.URL)
		}
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unmatch content type: %s", ct)
		}
		var sent policy.Policy
		if err := json.Unmarshal(rec.Bodies()[0], &sent); err != nil {
			t.Fatal(err)
		}
		if !sent.Equal(expected) {
			t.Errorf("unmatch sent policy:\n%s", cmp.Diff(expected, sent))
		}
	})

	t.Run("PublishPolicy, DeletePolicy and DistributeAdaptionPolicy use their methods", func(t *testing.T) {
		rec := &recorder{status: http.StatusOK}
		svr := httptest.NewServer(rec)
		defer svr.Close()

		testee := upstream.NewPolicyManagementApi(policyConfig(t, svr.URL))
		if err := testee.PublishPolicy(ctx, expected.Id); err != nil {
			t.Fatal(err)
		}
		if err := testee.DeletePolicy(ctx, expected.Id); err != nil {
			t.Fatal(err)
		}
		if err := testee.DistributeAdaptionPolicy(ctx); err != nil {
			t.Fatal(err)
		}

		type req struct{ method, path, id string }
		actual := []req{}
		for _, r := range rec.Requests() {
			actual = append(actual, req{r.Method, r.URL.Path, r.URL.Query().Get("id")})
		}
		want := []req{
			{http.MethodPut, "/api/v1/policy/publish", expected.Id.String()},
			{http.MethodDelete, "/api/v1/policy", expected.Id.String()},
			{http.MethodPut, "/api/v1/policy/current/distribute-adaption-policy", ""},
		}
		if diff := cmp.Diff(want, actual, cmp.AllowUnexported(req{})); diff != "" {
			t.Errorf("unmatch requests:\n%s", diff)
		}
	})

	t.Run("404 is ErrNotFound", func(t *testing.T) {
		svr := httptest.NewServer(&recorder{
			status: http.StatusNotFound,
			body:   map[string]string{"title": "Not Found"},
		})
		defer svr.Close()

		testee := upstream.NewPolicyManagementApi(policyConfig(t, svr.URL))
		_, err := testee.GetPolicy(ctx, expected.Id)
		if !errors.Is(err, upstream.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, but got %v", err)
		}

		var uerr *upstream.UpstreamError
		if !errors.As(err, &uerr) {
			t.Fatalf("expected UpstreamError, but got %T", err)
		}
		if uerr.StatusCode != http.StatusNotFound || uerr.Detail != "Not Found" {
			t.Errorf("unexpected error: %+v", uerr)
		}
	})
}
