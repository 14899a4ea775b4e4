// Package policy adapts the Policy Management Service for the dashboard.
//
// Each operation calls the upstream API, logs the outcome
// and returns upstream errors unchanged.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	"github.com/glasswall/icap-management-ui/pkg/upstream"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var ErrInvalidRequest = errors.New("policy: invalid request")

type GetPolicyByIdRequest struct {
	PolicyId uuid.UUID
}

type UpdatePolicyRequest struct {
	Policy policy.Policy
}

type PublishPolicyRequest struct {
	PolicyId uuid.UUID
}

type DeletePolicyRequest struct {
	PolicyId uuid.UUID
}

type PolicyManagementService interface {
	GetPolicy(ctx context.Context, req GetPolicyByIdRequest) (policy.Policy, error)
	GetCurrentPolicy(ctx context.Context) (policy.Policy, error)
	GetDraftPolicy(ctx context.Context) (policy.Policy, error)
	GetPolicyHistory(ctx context.Context) (policy.History, error)
	SaveDraftPolicy(ctx context.Context, req UpdatePolicyRequest) error
	PublishPolicy(ctx context.Context, req PublishPolicyRequest) error
	DeletePolicy(ctx context.Context, req DeletePolicyRequest) error
	DistributeAdaptionPolicy(ctx context.Context) error
}

type service struct {
	api    upstream.PolicyManagementApi
	logger echo.Logger
}

func New(api upstream.PolicyManagementApi, logger echo.Logger) PolicyManagementService {
	return &service{api: api, logger: logger}
}

func requireId(id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: policy id is required", ErrInvalidRequest)
	}
	return nil
}

func (s *service) GetPolicy(ctx context.Context, req GetPolicyByIdRequest) (policy.Policy, error) {
	if err := requireId(req.PolicyId); err != nil {
		return policy.Policy{}, err
	}

	s.logger.Infof("Retrieving Policy %s from the PolicyManagementService", req.PolicyId)
	p, err := s.api.GetPolicy(ctx, req.PolicyId)
	if err != nil {
		s.logger.Errorf("Could not get Policy %s: %s", req.PolicyId, err)
		return policy.Policy{}, err
	}
	s.logger.Infof("Retrieved Policy %s", p.Id)
	return p, nil
}

func (s *service) GetCurrentPolicy(ctx context.Context) (policy.Policy, error) {
	s.logger.Info("Retrieving Current Policy from the PolicyManagementService")
	p, err := s.api.GetCurrentPolicy(ctx)
	if err != nil {
		s.logger.Errorf("Could not get Current Policy: %s", err)
		return policy.Policy{}, err
	}
	s.logger.Infof("Retrieved Current Policy %s", p.Id)
	return p, nil
}

func (s *service) GetDraftPolicy(ctx context.Context) (policy.Policy, error) {
	s.logger.Info("Retrieving Draft Policy from the PolicyManagementService")
	p, err := s.api.GetDraftPolicy(ctx)
	if err != nil {
		s.logger.Errorf("Could not get Draft Policy: %s", err)
		return policy.Policy{}, err
	}
	s.logger.Infof("Retrieved Draft Policy %s", p.Id)
	return p, nil
}

func (s *service) GetPolicyHistory(ctx context.Context) (policy.History, error) {
	s.logger.Info("Retrieving Policy History from the PolicyManagementService")
	h, err := s.api.GetPolicyHistory(ctx)
	if err != nil {
		s.logger.Errorf("Could not get Policy History: %s", err)
		return policy.History{}, err
	}
	s.logger.Infof("Retrieved %d Policies in History", h.TotalPolicies)
	return h, nil
}

func (s *service) SaveDraftPolicy(ctx context.Context, req UpdatePolicyRequest) error {
	if err := requireId(req.Policy.Id); err != nil {
		return err
	}

	s.logger.Infof("Saving Draft Policy %s to the PolicyManagementService", req.Policy.Id)
	if err := s.api.SaveDraftPolicy(ctx, req.Policy); err != nil {
		s.logger.Errorf("Could not save Draft Policy %s: %s", req.Policy.Id, err)
		return err
	}
	s.logger.Infof("Saved Draft Policy %s", req.Policy.Id)
	return nil
}

func (s *service) PublishPolicy(ctx context.Context, req PublishPolicyRequest) error {
	if err := requireId(req.PolicyId); err != nil {
		return err
	}

	s.logger.Infof("Publishing Policy %s", req.PolicyId)
	if err := s.api.PublishPolicy(ctx, req.PolicyId); err != nil {
		s.logger.Errorf("Could not publish Policy %s: %s", req.PolicyId, err)
		return err
	}
	s.logger.Infof("Published Policy %s", req.PolicyId)
	return nil
}

func (s *service) DeletePolicy(ctx context.Context, req DeletePolicyRequest) error {
	if err := requireId(req.PolicyId); err != nil {
		return err
	}

	s.logger.Infof("Deleting Policy %s", req.PolicyId)
	if err := s.api.DeletePolicy(ctx, req.PolicyId); err != nil {
		s.logger.Errorf("Could not delete Policy %s: %s", req.PolicyId, err)
		return err
	}
	s.logger.Infof("Deleted Policy %s", req.PolicyId)
	return nil
}

func (s *service) DistributeAdaptionPolicy(ctx context.Context) error {
	s.logger.Info("Distributing Adaption Policy")
	if err := s.api.DistributeAdaptionPolicy(ctx); err != nil {
		s.logger.Errorf("Could not distribute Adaption Policy: %s", err)
		return err
	}
	s.logger.Info("Distributed Adaption Policy")
	return nil
}
