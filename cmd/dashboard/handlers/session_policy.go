package handlers

import (
	"github.com/glasswall/icap-management-ui/pkg/session"
	"github.com/glasswall/icap-management-ui/pkg/state/policy"
	"github.com/glasswall/icap-management-ui/pkg/state/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type PolicySessions = Sessions[*policy.Container, policy.State]

// NewPolicySessions binds the manager with the policy editor.
func NewPolicySessions(
	mgr *session.Manager[*policy.Container],
	newContainer func() *policy.Container,
) PolicySessions {
	return PolicySessions{
		Manager:   mgr,
		New:       newContainer,
		Start:     (*policy.Container).Load,
		State:     (*policy.Container).State,
		Subscribe: (*policy.Container).Subscribe,
	}
}

// SetNewDraftPolicy stores the policy in the request body as an edit of the draft.
func SetNewDraftPolicy(c echo.Context, container *policy.Container) (*store.Op, error) {
	p, err := bindPolicy(c)
	if err != nil {
		return nil, err
	}
	return nil, container.SetNewDraftPolicy(p)
}

func SaveDraftChanges(_ echo.Context, container *policy.Container) (*store.Op, error) {
	return container.SaveDraftChanges()
}

func CancelDraftChanges(_ echo.Context, container *policy.Container) (*store.Op, error) {
	return nil, container.CancelDraftChanges()
}

// PublishDraftPolicy publishes the policy given as {"policyId": ...} in the request body.
//
// Without body, the draft policy of the session is published.
func PublishDraftPolicy(c echo.Context, container *policy.Container) (*store.Op, error) {
	id, err := targetPolicy(c, container)
	if err != nil {
		return nil, err
	}
	return container.PublishPolicy(id)
}

// DeleteDraftPolicy deletes the policy given as {"policyId": ...} in the request body.
//
// Without body, the draft policy of the session is deleted.
func DeleteDraftPolicy(c echo.Context, container *policy.Container) (*store.Op, error) {
	id, err := targetPolicy(c, container)
	if err != nil {
		return nil, err
	}
	return container.DeleteDraftPolicy(id)
}

func LoadPolicyHistory(_ echo.Context, container *policy.Container) (*store.Op, error) {
	return container.LoadPolicyHistory()
}

type policyTarget struct {
	PolicyId uuid.UUID `json:"policyId"`
}

func targetPolicy(c echo.Context, container *policy.Container) (uuid.UUID, error) {
	if hasBody(c) {
		t := policyTarget{}
		if err := decodeJSON(c, &t); err != nil {
			return uuid.Nil, err
		}
		if t.PolicyId != uuid.Nil {
			return t.PolicyId, nil
		}
	}

	draft := container.State().DraftPolicy
	if draft == nil {
		return uuid.Nil, policy.ErrNoDraft
	}
	return draft.Id, nil
}

func hasBody(c echo.Context) bool {
	req := c.Request()
	return req.Body != nil && req.ContentLength != 0
}
