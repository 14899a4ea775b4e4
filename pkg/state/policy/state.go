// Package policy holds the state of the policy editor.
//
// State is changed only by Reduce. Container runs the asynchronous
// operations of the editor, one by one, and dispatches their outcomes.
package policy

import (
	"slices"

	types "github.com/glasswall/icap-management-ui/pkg/api/types/policy"
)

type Status string

const (
	Loading Status = "LOADING"
	Error   Status = "ERROR"
	Loaded  Status = "LOADED"
)

type State struct {
	CurrentPolicy   *types.Policy  `json:"currentPolicy"`
	DraftPolicy     *types.Policy  `json:"draftPolicy"`
	NewDraftPolicy  *types.Policy  `json:"newDraftPolicy"`
	PolicyHistory   *types.History `json:"policyHistory"`
	IsPolicyChanged bool           `json:"isPolicyChanged"`
	Status          Status         `json:"status"`
	PolicyError     string         `json:"policyError"`
}

// Initial is the state before anything is loaded.
func Initial() State {
	return State{Status: Loading}
}

type ActionType string

const (
	TypeSetPolicyError     ActionType = "SET_POLICY_ERROR"
	TypeSetStatus          ActionType = "SET_STATUS"
	TypeSetIsPolicyChanged ActionType = "SET_IS_POLICY_CHANGED"
	TypeSetCurrentPolicy   ActionType = "SET_CURRENT_POLICY"
	TypeSetDraftPolicy     ActionType = "SET_DRAFT_POLICY"
	TypeSetNewDraftPolicy  ActionType = "SET_NEW_DRAFT_POLICY"
	TypeSetPolicyHistory   ActionType = "SET_POLICY_HISTORY"
	TypeCancelDraftChanges ActionType = "CANCEL_DRAFT_CHANGES"
)

// Action is a request of change to State.
//
// Which of fields are read depends on Type.
type Action struct {
	Type    ActionType
	Error   string
	Status  Status
	Changed bool
	Policy  *types.Policy
	History *types.History
}

func SetPolicyError(message string) Action {
	return Action{Type: TypeSetPolicyError, Error: message}
}

func SetStatus(status Status) Action {
	return Action{Type: TypeSetStatus, Status: status}
}

func SetIsPolicyChanged(changed bool) Action {
	return Action{Type: TypeSetIsPolicyChanged, Changed: changed}
}

func SetCurrentPolicy(p *types.Policy) Action {
	return Action{Type: TypeSetCurrentPolicy, Policy: p}
}

func SetDraftPolicy(p *types.Policy) Action {
	return Action{Type: TypeSetDraftPolicy, Policy: p}
}

// SetNewDraftPolicy stores an edit of the draft.
func SetNewDraftPolicy(p *types.Policy) Action {
	return Action{Type: TypeSetNewDraftPolicy, Policy: p}
}

func SetPolicyHistory(h *types.History) Action {
	return Action{Type: TypeSetPolicyHistory, History: h}
}

func CancelDraftChanges() Action {
	return Action{Type: TypeCancelDraftChanges}
}

// Reduce returns the state after the action.
//
// s is not modified, and the returned state shares no policy with s or a.
// Unknown actions are ignored.
func Reduce(s State, a Action) State {
	next := State{
		CurrentPolicy:   s.CurrentPolicy.Clone(),
		DraftPolicy:     s.DraftPolicy.Clone(),
		NewDraftPolicy:  s.NewDraftPolicy.Clone(),
		PolicyHistory:   s.PolicyHistory.Clone(),
		IsPolicyChanged: s.IsPolicyChanged,
		Status:          s.Status,
		PolicyError:     s.PolicyError,
	}

	switch a.Type {
	case TypeSetPolicyError:
		next.PolicyError = a.Error
	case TypeSetStatus:
		next.Status = a.Status
	case TypeSetIsPolicyChanged:
		next.IsPolicyChanged = a.Changed
	case TypeSetCurrentPolicy:
		next.CurrentPolicy = a.Policy.Clone()
	case TypeSetDraftPolicy:
		next.DraftPolicy = a.Policy.Clone()
	case TypeSetNewDraftPolicy:
		next.NewDraftPolicy = a.Policy.Clone()
		next.IsPolicyChanged = !types.Equal(next.NewDraftPolicy, next.DraftPolicy)
	case TypeSetPolicyHistory:
		next.PolicyHistory = a.History.Clone()
	case TypeCancelDraftChanges:
		next.NewDraftPolicy = next.DraftPolicy.Clone()
		next.IsPolicyChanged = false
	}
	return next
}

// sortByCreatedDesc returns a copy of h whose policies are sorted, newer first.
func sortByCreatedDesc(h types.History) *types.History {
	sorted := h.Clone()
	slices.SortStableFunc(sorted.Policies, func(a, b types.Policy) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})
	return sorted
}
