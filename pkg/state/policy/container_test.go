package policy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glasswall/icap-management-ui/internal/testutils/logs"
	types "github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	svc "github.com/glasswall/icap-management-ui/pkg/services/policy"
	"github.com/glasswall/icap-management-ui/pkg/state/policy"
	"github.com/glasswall/icap-management-ui/pkg/upstream/mock"
	"github.com/glasswall/icap-management-ui/pkg/utils/cmp"
	"github.com/glasswall/icap-management-ui/pkg/utils/try"
	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/goleak"
)

var (
	t0      = time.Date(2021, time.January, 5, 10, 0, 0, 0, time.UTC)
	current = examplePolicy(currentId, types.Current, t0)
	draft   = examplePolicy(draftId, types.Draft, t0.Add(time.Hour))
)

func newTestee(t *testing.T) (*policy.Container, *mock.MockPolicyManagementApi) {
	t.Helper()
	api := mock.NewPolicyManagementApi(t)
	logger, _ := logs.New()
	testee := policy.New(svc.New(api, logger), logger)
	t.Cleanup(testee.Close)
	return testee, api
}

func serve(api *mock.MockPolicyManagementApi, current, draft types.Policy) {
	api.Impl.GetCurrentPolicy = func(ctx context.Context) (types.Policy, error) {
		return current, nil
	}
	api.Impl.GetDraftPolicy = func(ctx context.Context) (types.Policy, error) {
		return draft, nil
	}
}

func wait(t *testing.T, op interface{ Wait(context.Context) error }, err error) error {
	t.Helper()
	if err != nil {
		t.Fatalf("operation is not queued: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return op.Wait(ctx)
}

func loaded(t *testing.T) (*policy.Container, *mock.MockPolicyManagementApi) {
	t.Helper()
	testee, api := newTestee(t)
	serve(api, current, draft)
	op, err := testee.Load()
	if err := wait(t, op, err); err != nil {
		t.Fatal(err)
	}
	return testee, api
}

func TestContainer_Load(t *testing.T) {
	t.Run("it fetches the current and the draft policies, and starts editing the draft", func(t *testing.T) {
		testee, api := newTestee(t)
		if got := testee.State().Status; got != policy.Loading {
			t.Errorf("initial status: %s", got)
		}
		serve(api, current, draft)

		op, err := testee.Load()
		if err := wait(t, op, err); err != nil {
			t.Fatal(err)
		}

		want := policy.State{
			CurrentPolicy:  &current,
			DraftPolicy:    &draft,
			NewDraftPolicy: &draft,
			Status:         policy.Loaded,
		}
		if diff := gocmp.Diff(want, testee.State()); diff != "" {
			t.Errorf("unexpected state (-want +got):\n%s", diff)
		}
		calls := api.Calls()
		if calls.GetCurrentPolicy != 1 || calls.GetDraftPolicy != 1 {
			t.Errorf("unexpected calls: %+v", calls)
		}
	})

	t.Run("it fetches the current and the draft policies concurrently", func(t *testing.T) {
		testee, api := newTestee(t)

		both := sync.WaitGroup{}
		both.Add(2)
		arrive := func(ctx context.Context) error {
			both.Done()
			done := make(chan struct{})
			go func() { both.Wait(); close(done) }()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		api.Impl.GetCurrentPolicy = func(ctx context.Context) (types.Policy, error) {
			return current, arrive(ctx)
		}
		api.Impl.GetDraftPolicy = func(ctx context.Context) (types.Policy, error) {
			return draft, arrive(ctx)
		}

		op, err := testee.Load()
		if err := wait(t, op, err); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("when the draft is not fetched, it sets status ERROR with the message, and sets the current policy only", func(t *testing.T) {
		testee, api := newTestee(t)
		api.Impl.GetCurrentPolicy = func(ctx context.Context) (types.Policy, error) {
			return current, nil
		}
		api.Impl.GetDraftPolicy = func(ctx context.Context) (types.Policy, error) {
			return types.Policy{}, errors.New("fake error")
		}

		op, err := testee.Load()
		if err := wait(t, op, err); err == nil {
			t.Fatal("error is not returned")
		}

		want := policy.State{Status: policy.Error, PolicyError: "fake error", CurrentPolicy: &current}
		if diff := gocmp.Diff(want, testee.State()); diff != "" {
			t.Errorf("unexpected state (-want +got):\n%s", diff)
		}
	})

	t.Run("when the current policy is not fetched, it sets status ERROR with the message, and leaves policies", func(t *testing.T) {
		testee, api := newTestee(t)
		api.Impl.GetCurrentPolicy = func(ctx context.Context) (types.Policy, error) {
			return types.Policy{}, errors.New("fake error")
		}
		api.Impl.GetDraftPolicy = func(ctx context.Context) (types.Policy, error) {
			return draft, nil
		}

		op, err := testee.Load()
		if err := wait(t, op, err); err == nil {
			t.Fatal("error is not returned")
		}

		want := policy.State{Status: policy.Error, PolicyError: "fake error"}
		if diff := gocmp.Diff(want, testee.State()); diff != "" {
			t.Errorf("unexpected state (-want +got):\n%s", diff)
		}
	})

	t.Run("a new operation clears the error of previous one", func(t *testing.T) {
		testee, api := newTestee(t)
		api.Impl.GetCurrentPolicy = func(ctx context.Context) (types.Policy, error) {
			return types.Policy{}, errors.New("fake error")
		}
		api.Impl.GetDraftPolicy = func(ctx context.Context) (types.Policy, error) {
			return draft, nil
		}
		op, err := testee.Load()
		wait(t, op, err)

		serve(api, current, draft)
		op, err = testee.Load()
		if err := wait(t, op, err); err != nil {
			t.Fatal(err)
		}
		if s := testee.State(); s.Status != policy.Loaded || s.PolicyError != "" {
			t.Errorf("unexpected state: status = %s, error = %q", s.Status, s.PolicyError)
		}
	})
}

func TestContainer_Edit(t *testing.T) {
	edited := draft
	edited.AdaptionPolicy.NcfsRoute.NcfsRoutingUrl = "ncfs.example.com"

	t.Run("SetNewDraftPolicy marks the policy changed, and CancelDraftChanges rolls it back", func(t *testing.T) {
		testee, _ := loaded(t)

		if err := testee.SetNewDraftPolicy(edited); err != nil {
			t.Fatal(err)
		}
		if s := testee.State(); !s.IsPolicyChanged || !types.Equal(s.NewDraftPolicy, &edited) {
			t.Errorf("edit is not stored: %+v", s)
		}

		if err := testee.CancelDraftChanges(); err != nil {
			t.Fatal(err)
		}
		if s := testee.State(); s.IsPolicyChanged || !types.Equal(s.NewDraftPolicy, &draft) {
			t.Errorf("edit is not rolled back: %+v", s)
		}
	})

	t.Run("SaveDraftChanges saves the edit as the draft", func(t *testing.T) {
		testee, api := loaded(t)
		api.Impl.SaveDraftPolicy = func(ctx context.Context, p types.Policy) error {
			return nil
		}
		testee.SetNewDraftPolicy(edited)

		op, err := testee.SaveDraftChanges()
		if err := wait(t, op, err); err != nil {
			t.Fatal(err)
		}

		if saved := api.Calls().SaveDraftPolicy; !cmp.SliceEqWith(saved, []types.Policy{edited}, types.Policy.Equal) {
			t.Errorf("unexpected saved policies: %+v", saved)
		}
		want := policy.State{
			CurrentPolicy:  &current,
			DraftPolicy:    &edited,
			NewDraftPolicy: &edited,
			Status:         policy.Loaded,
		}
		if diff := gocmp.Diff(want, testee.State()); diff != "" {
			t.Errorf("unexpected state (-want +got):\n%s", diff)
		}
	})

	t.Run("SaveDraftChanges keeps the edit when saving fails", func(t *testing.T) {
		testee, api := loaded(t)
		api.Impl.SaveDraftPolicy = func(ctx context.Context, p types.Policy) error {
			return errors.New("fake error")
		}
		testee.SetNewDraftPolicy(edited)

		op, err := testee.SaveDraftChanges()
		if err := wait(t, op, err); err == nil {
			t.Fatal("error is not returned")
		}

		want := policy.State{
			CurrentPolicy:   &current,
			DraftPolicy:     &draft,
			NewDraftPolicy:  &edited,
			IsPolicyChanged: true,
			Status:          policy.Error,
			PolicyError:     "fake error",
		}
		if diff := gocmp.Diff(want, testee.State()); diff != "" {
			t.Errorf("unexpected state (-want +got):\n%s", diff)
		}
	})

	t.Run("SaveDraftChanges fails without draft", func(t *testing.T) {
		testee, _ := newTestee(t)

		op, err := testee.SaveDraftChanges()
		if err := wait(t, op, err); !errors.Is(err, policy.ErrNoDraft) {
			t.Errorf("expected ErrNoDraft, but got %v", err)
		}
		if s := testee.State(); s.Status != policy.Error {
			t.Errorf("unexpected status: %s", s.Status)
		}
	})
}

func TestContainer_PublishAndDelete(t *testing.T) {
	published := draft
	published.PolicyType = types.Current
	newDraft := examplePolicy(uuid.MustParse("3c9d1e4a-6f1b-4a52-9a3e-1b8f0c2d0003"), types.Draft, t0.Add(2*time.Hour))

	t.Run("PublishPolicy publishes, then reloads policies", func(t *testing.T) {
		testee, api := loaded(t)
		api.Impl.PublishPolicy = func(ctx context.Context, id uuid.UUID) error {
			serve(api, published, newDraft)
			return nil
		}

		op, err := testee.PublishPolicy(draftId)
		if err := wait(t, op, err); err != nil {
			t.Fatal(err)
		}

		if calls := api.Calls().PublishPolicy; !cmp.SliceEq(calls, []uuid.UUID{draftId}) {
			t.Errorf("unexpected publish calls: %v", calls)
		}
		want := policy.State{
			CurrentPolicy:  &published,
			DraftPolicy:    &newDraft,
			NewDraftPolicy: &newDraft,
			Status:         policy.Loaded,
		}
		if diff := gocmp.Diff(want, testee.State()); diff != "" {
			t.Errorf("unexpected state (-want +got):\n%s", diff)
		}
	})

	t.Run("DeleteDraftPolicy deletes, then reloads policies", func(t *testing.T) {
		testee, api := loaded(t)
		api.Impl.DeletePolicy = func(ctx context.Context, id uuid.UUID) error {
			serve(api, current, newDraft)
			return nil
		}

		op, err := testee.DeleteDraftPolicy(draftId)
		if err := wait(t, op, err); err != nil {
			t.Fatal(err)
		}

		if calls := api.Calls().DeletePolicy; !cmp.SliceEq(calls, []uuid.UUID{draftId}) {
			t.Errorf("unexpected delete calls: %v", calls)
		}
		want := policy.State{
			CurrentPolicy:  &current,
			DraftPolicy:    &newDraft,
			NewDraftPolicy: &newDraft,
			Status:         policy.Loaded,
		}
		if diff := gocmp.Diff(want, testee.State()); diff != "" {
			t.Errorf("unexpected state (-want +got):\n%s", diff)
		}
	})

	t.Run("PublishPolicy does not reload when publishing fails", func(t *testing.T) {
		testee, api := loaded(t)
		api.Impl.PublishPolicy = func(ctx context.Context, id uuid.UUID) error {
			return errors.New("fake error")
		}

		op, err := testee.PublishPolicy(draftId)
		if err := wait(t, op, err); err == nil {
			t.Fatal("error is not returned")
		}
		if calls := api.Calls(); calls.GetCurrentPolicy != 1 {
			t.Errorf("policies are reloaded: %+v", calls)
		}
		if s := testee.State(); s.Status != policy.Error || s.PolicyError != "fake error" {
			t.Errorf("unexpected state: status = %s, error = %q", s.Status, s.PolicyError)
		}
	})
}

func TestContainer_LoadPolicyHistory(t *testing.T) {
	testee, api := newTestee(t)
	oldest := examplePolicy(uuid.MustParse("3c9d1e4a-6f1b-4a52-9a3e-1b8f0c2d0010"), types.Expired, t0.Add(-48*time.Hour))
	older := examplePolicy(uuid.MustParse("3c9d1e4a-6f1b-4a52-9a3e-1b8f0c2d0011"), types.Expired, t0.Add(-24*time.Hour))
	api.Impl.GetPolicyHistory = func(ctx context.Context) (types.History, error) {
		return types.History{
			TotalPolicies: 3,
			Policies:      []types.Policy{older, current, oldest},
		}, nil
	}

	op, err := testee.LoadPolicyHistory()
	if err := wait(t, op, err); err != nil {
		t.Fatal(err)
	}

	want := &types.History{TotalPolicies: 3, Policies: []types.Policy{current, older, oldest}}
	s := testee.State()
	if diff := gocmp.Diff(want, s.PolicyHistory); diff != "" {
		t.Errorf("unexpected history (-want +got):\n%s", diff)
	}
	if s.Status != policy.Loaded {
		t.Errorf("unexpected status: %s", s.Status)
	}
}

func TestContainer_Serialised(t *testing.T) {
	testee, api := newTestee(t)

	release := make(chan struct{})
	api.Impl.GetPolicyHistory = func(ctx context.Context) (types.History, error) {
		<-release
		return types.History{}, nil
	}
	serve(api, current, draft)

	first, err := testee.LoadPolicyHistory()
	if err != nil {
		t.Fatal(err)
	}
	second, err := testee.Load()
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-second.Done():
		t.Fatal("second operation finishes before the first one")
	case <-time.After(50 * time.Millisecond):
	}
	if calls := api.Calls(); calls.GetCurrentPolicy != 0 {
		t.Errorf("second operation has started: %+v", calls)
	}

	close(release)
	if err := wait(t, second, nil); err != nil {
		t.Fatal(err)
	}
	if err := first.Err(); err != nil {
		t.Fatal(err)
	}
	if s := testee.State(); s.Status != policy.Loaded || s.CurrentPolicy == nil {
		t.Errorf("unexpected state: %+v", s)
	}
}

func TestContainer_Subscribe(t *testing.T) {
	testee, api := newTestee(t)
	serve(api, current, draft)

	sub := try.To(testee.Subscribe(16)).OrFatal(t)
	op, err := testee.Load()
	if err := wait(t, op, err); err != nil {
		t.Fatal(err)
	}
	testee.Close()

	statuses := []policy.Status{}
	var last policy.State
	for s := range sub.C() {
		statuses = append(statuses, s.Status)
		last = s
	}
	if statuses[0] != policy.Loading || statuses[len(statuses)-1] != policy.Loaded {
		t.Errorf("unexpected transitions: %v", statuses)
	}
	if !types.Equal(last.DraftPolicy, &draft) {
		t.Errorf("the latest snapshot is not delivered: %+v", last)
	}
}

func TestContainer_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := mock.NewPolicyManagementApi(t)
	logger, rec := logs.New()
	testee := policy.New(svc.New(api, logger), logger)

	started := make(chan struct{})
	api.Impl.GetCurrentPolicy = func(ctx context.Context) (types.Policy, error) {
		close(started)
		<-ctx.Done()
		return types.Policy{}, ctx.Err()
	}
	api.Impl.GetDraftPolicy = func(ctx context.Context) (types.Policy, error) {
		<-ctx.Done()
		return types.Policy{}, ctx.Err()
	}

	op, err := testee.Load()
	if err != nil {
		t.Fatal(err)
	}
	<-started
	testee.Close()

	if err := op.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, but got %v", err)
	}
	if s := testee.State(); s.Status != policy.Loading || s.PolicyError != "" {
		t.Errorf("state is changed by Close: %+v", s)
	}
	if rec.Contains("policy editor: load failed") {
		t.Errorf("cancellation by Close is logged as failure: %v", rec.Lines())
	}

	if _, err := testee.LoadPolicyHistory(); !errors.Is(err, policy.ErrClosed) {
		t.Errorf("expected ErrClosed, but got %v", err)
	}
	if err := testee.SetNewDraftPolicy(draft); !errors.Is(err, policy.ErrClosed) {
		t.Errorf("expected ErrClosed, but got %v", err)
	}
	if err := testee.CancelDraftChanges(); !errors.Is(err, policy.ErrClosed) {
		t.Errorf("expected ErrClosed, but got %v", err)
	}
}
