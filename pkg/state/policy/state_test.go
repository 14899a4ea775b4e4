package policy_test

import (
	"testing"
	"time"

	types "github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	"github.com/glasswall/icap-management-ui/pkg/state/policy"
	"github.com/glasswall/icap-management-ui/pkg/utils/rfctime"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

var (
	currentId = uuid.MustParse("3c9d1e4a-6f1b-4a52-9a3e-1b8f0c2d0001")
	draftId   = uuid.MustParse("3c9d1e4a-6f1b-4a52-9a3e-1b8f0c2d0002")
)

func examplePolicy(id uuid.UUID, typ types.Type, created time.Time) types.Policy {
	p := types.Policy{
		Id:         id,
		PolicyType: typ,
		Created:    rfctime.From(created),
	}
	p.AdaptionPolicy.ContentManagementFlags.PdfContentManagement.Javascript = types.Sanitise
	p.AdaptionPolicy.NcfsActions.GlasswallBlockedFilesAction = types.Block
	return p
}

func ptr[T any](v T) *T {
	return &v
}

func TestReduce(t *testing.T) {
	created := time.Date(2021, time.January, 5, 10, 0, 0, 0, time.UTC)
	draft := examplePolicy(draftId, types.Draft, created)
	edited := draft
	edited.AdaptionPolicy.ContentManagementFlags.PdfContentManagement.Javascript = types.Disallow

	type When struct {
		state  policy.State
		action policy.Action
	}
	theory := func(when When, then policy.State) func(*testing.T) {
		return func(t *testing.T) {
			actual := policy.Reduce(when.state, when.action)
			if diff := cmp.Diff(then, actual); diff != "" {
				t.Errorf("unexpected state (-want +got):\n%s", diff)
			}
		}
	}

	t.Run("SET_STATUS replaces status", theory(
		When{state: policy.Initial(), action: policy.SetStatus(policy.Loaded)},
		policy.State{Status: policy.Loaded},
	))
	t.Run("SET_POLICY_ERROR stores the message", theory(
		When{state: policy.Initial(), action: policy.SetPolicyError("fake error")},
		policy.State{Status: policy.Loading, PolicyError: "fake error"},
	))
	t.Run("SET_STATUS does not clear the error", theory(
		When{
			state:  policy.State{Status: policy.Error, PolicyError: "fake error"},
			action: policy.SetStatus(policy.Loaded),
		},
		policy.State{Status: policy.Loaded, PolicyError: "fake error"},
	))
	t.Run("SET_IS_POLICY_CHANGED replaces the flag", theory(
		When{state: policy.State{Status: policy.Loaded}, action: policy.SetIsPolicyChanged(true)},
		policy.State{Status: policy.Loaded, IsPolicyChanged: true},
	))
	t.Run("SET_CURRENT_POLICY replaces the current policy", theory(
		When{state: policy.State{Status: policy.Loaded}, action: policy.SetCurrentPolicy(ptr(draft))},
		policy.State{Status: policy.Loaded, CurrentPolicy: ptr(draft)},
	))
	t.Run("SET_DRAFT_POLICY replaces the draft, but not the edit", theory(
		When{
			state:  policy.State{Status: policy.Loaded, NewDraftPolicy: ptr(edited), IsPolicyChanged: true},
			action: policy.SetDraftPolicy(ptr(draft)),
		},
		policy.State{
			Status: policy.Loaded, DraftPolicy: ptr(draft),
			NewDraftPolicy: ptr(edited), IsPolicyChanged: true,
		},
	))
	t.Run("SET_NEW_DRAFT_POLICY marks the policy changed when the edit differs from the draft", theory(
		When{
			state:  policy.State{Status: policy.Loaded, DraftPolicy: ptr(draft), NewDraftPolicy: ptr(draft)},
			action: policy.SetNewDraftPolicy(ptr(edited)),
		},
		policy.State{
			Status: policy.Loaded, DraftPolicy: ptr(draft),
			NewDraftPolicy: ptr(edited), IsPolicyChanged: true,
		},
	))
	t.Run("SET_NEW_DRAFT_POLICY marks the policy unchanged when the edit equals the draft", theory(
		When{
			state: policy.State{
				Status: policy.Loaded, DraftPolicy: ptr(draft),
				NewDraftPolicy: ptr(edited), IsPolicyChanged: true,
			},
			action: policy.SetNewDraftPolicy(ptr(draft)),
		},
		policy.State{Status: policy.Loaded, DraftPolicy: ptr(draft), NewDraftPolicy: ptr(draft)},
	))
	t.Run("SET_POLICY_HISTORY replaces the history", theory(
		When{
			state:  policy.State{Status: policy.Loaded},
			action: policy.SetPolicyHistory(&types.History{TotalPolicies: 1, Policies: []types.Policy{draft}}),
		},
		policy.State{
			Status:        policy.Loaded,
			PolicyHistory: &types.History{TotalPolicies: 1, Policies: []types.Policy{draft}},
		},
	))
	t.Run("CANCEL_DRAFT_CHANGES rolls the edit back to the draft", theory(
		When{
			state: policy.State{
				Status: policy.Loaded, DraftPolicy: ptr(draft),
				NewDraftPolicy: ptr(edited), IsPolicyChanged: true,
			},
			action: policy.CancelDraftChanges(),
		},
		policy.State{Status: policy.Loaded, DraftPolicy: ptr(draft), NewDraftPolicy: ptr(draft)},
	))
	t.Run("unknown action is ignored", theory(
		When{
			state:  policy.State{Status: policy.Loaded, DraftPolicy: ptr(draft)},
			action: policy.Action{Type: "UNKNOWN"},
		},
		policy.State{Status: policy.Loaded, DraftPolicy: ptr(draft)},
	))

	t.Run("it shares no policy with its input", func(t *testing.T) {
		input := &types.History{TotalPolicies: 1, Policies: []types.Policy{draft}}
		before := policy.State{Status: policy.Loaded, DraftPolicy: ptr(draft)}

		after := policy.Reduce(before, policy.SetPolicyHistory(input))
		after = policy.Reduce(after, policy.CancelDraftChanges())

		input.Policies[0].UpdatedBy = "someone"
		after.DraftPolicy.UpdatedBy = "someone else"
		after.NewDraftPolicy.PolicyType = types.Expired

		if before.DraftPolicy.UpdatedBy != "" {
			t.Errorf("input state is modified: %+v", before.DraftPolicy)
		}
		if after.PolicyHistory.Policies[0].UpdatedBy != "" {
			t.Errorf("state shares history with the action: %+v", after.PolicyHistory)
		}
		if after.NewDraftPolicy.UpdatedBy != "" {
			t.Errorf("edit shares the draft: %+v", after.NewDraftPolicy)
		}
	})
}
