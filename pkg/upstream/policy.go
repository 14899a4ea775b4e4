package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	kcf "github.com/glasswall/icap-management-ui/pkg/configs/dashboard"
	"github.com/google/uuid"
)

// PolicyManagementApi is the client of the Policy Management Service.
type PolicyManagementApi interface {
	// GetPolicy gets a policy by its id.
	//
	// Returns error matching ErrNotFound when there are no such policies.
	GetPolicy(ctx context.Context, id uuid.UUID) (policy.Policy, error)

	// GetCurrentPolicy gets the published policy in effect.
	GetCurrentPolicy(ctx context.Context) (policy.Policy, error)

	// GetDraftPolicy gets the policy being edited.
	GetDraftPolicy(ctx context.Context) (policy.Policy, error)

	// GetPolicyHistory gets policies published in past.
	GetPolicyHistory(ctx context.Context) (policy.History, error)

	// SaveDraftPolicy overwrites the draft policy.
	SaveDraftPolicy(ctx context.Context, p policy.Policy) error

	// PublishPolicy makes the draft policy with the id current.
	PublishPolicy(ctx context.Context, id uuid.UUID) error

	// DeletePolicy deletes a policy.
	DeletePolicy(ctx context.Context, id uuid.UUID) error

	// DistributeAdaptionPolicy pushes the current adaption policy to ICAP services.
	DistributeAdaptionPolicy(ctx context.Context) error
}

const PolicyService = "policy-management"

type policyApi struct {
	c    *caller
	conf kcf.PolicyServiceConfig
}

func NewPolicyManagementApi(conf kcf.PolicyServiceConfig, opts ...Option) PolicyManagementApi {
	return &policyApi{
		c:    newCaller(PolicyService, conf.BaseUrl, opts...),
		conf: conf,
	}
}

func byId(id uuid.UUID) url.Values {
	return url.Values{"id": []string{id.String()}}
}

func (p *policyApi) GetPolicy(ctx context.Context, id uuid.UUID) (policy.Policy, error) {
	var ret policy.Policy
	if err := p.c.do(ctx, call{
		operation: "GetPolicy",
		method:    http.MethodGet,
		path:      p.conf.GetPolicyPath,
		query:     byId(id),
		messageFor: MessageFor{
			Status4xx: fmt.Sprintf("policy %s is not found", id),
			Status5xx: "server error on getting policy",
		},
	}, &ret); err != nil {
		return policy.Policy{}, err
	}
	return ret, nil
}

func (p *policyApi) GetCurrentPolicy(ctx context.Context) (policy.Policy, error) {
	var ret policy.Policy
	if err := p.c.do(ctx, call{
		operation: "GetCurrentPolicy",
		method:    http.MethodGet,
		path:      p.conf.GetCurrentPolicyPath,
		messageFor: MessageFor{
			Status4xx: "current policy is not available",
			Status5xx: "server error on getting current policy",
		},
	}, &ret); err != nil {
		return policy.Policy{}, err
	}
	return ret, nil
}

func (p *policyApi) GetDraftPolicy(ctx context.Context) (policy.Policy, error) {
	var ret policy.Policy
	if err := p.c.do(ctx, call{
		operation: "GetDraftPolicy",
		method:    http.MethodGet,
		path:      p.conf.GetDraftPolicyPath,
		messageFor: MessageFor{
			Status4xx: "draft policy is not available",
			Status5xx: "server error on getting draft policy",
		},
	}, &ret); err != nil {
		return policy.Policy{}, err
	}
	return ret, nil
}

func (p *policyApi) GetPolicyHistory(ctx context.Context) (policy.History, error) {
	var ret policy.History
	if err := p.c.do(ctx, call{
		operation: "GetPolicyHistory",
		method:    http.MethodGet,
		path:      p.conf.GetPolicyHistoryPath,
		messageFor: MessageFor{
			Status4xx: "policy history is not available",
			Status5xx: "server error on getting policy history",
		},
	}, &ret); err != nil {
		return policy.History{}, err
	}
	return ret, nil
}

func (p *policyApi) SaveDraftPolicy(ctx context.Context, draft policy.Policy) error {
	return p.c.do(ctx, call{
		operation: "SaveDraftPolicy",
		method:    http.MethodPut,
		path:      p.conf.UpdateDraftPolicyPath,
		body:      draft,
		messageFor: MessageFor{
			Status4xx: "draft policy is rejected",
			Status5xx: "server error on saving draft policy",
		},
	}, nil)
}

func (p *policyApi) PublishPolicy(ctx context.Context, id uuid.UUID) error {
	return p.c.do(ctx, call{
		operation: "PublishPolicy",
		method:    http.MethodPut,
		path:      p.conf.PublishPolicyPath,
		query:     byId(id),
		messageFor: MessageFor{
			Status4xx: fmt.Sprintf("policy %s cannot be published", id),
			Status5xx: "server error on publishing policy",
		},
	}, nil)
}

func (p *policyApi) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	return p.c.do(ctx, call{
		operation: "DeletePolicy",
		method:    http.MethodDelete,
		path:      p.conf.DeletePolicyPath,
		query:     byId(id),
		messageFor: MessageFor{
			Status4xx: fmt.Sprintf("policy %s cannot be deleted", id),
			Status5xx: "server error on deleting policy",
		},
	}, nil)
}

func (p *policyApi) DistributeAdaptionPolicy(ctx context.Context) error {
	return p.c.do(ctx, call{
		operation: "DistributeAdaptionPolicy",
		method:    http.MethodPut,
		path:      p.conf.DistributePolicyPath,
		messageFor: MessageFor{
			Status4xx: "adaption policy cannot be distributed",
			Status5xx: "server error on distributing adaption policy",
		},
	}, nil)
}
