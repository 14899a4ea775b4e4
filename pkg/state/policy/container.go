package policy

import (
	"context"
	"errors"

	types "github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	svc "github.com/glasswall/icap-management-ui/pkg/services/policy"
	"github.com/glasswall/icap-management-ui/pkg/state/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned for operations on a closed Container.
var ErrClosed = store.ErrClosed

// ErrNoDraft is returned when saving while no draft has been loaded.
var ErrNoDraft = errors.New("policy: no draft policy to save")

// Container is the policy editor.
//
// Asynchronous operations are queued and run one by one.
// Each of them sets status LOADING, then LOADED or ERROR.
type Container struct {
	store  *store.Store[State, Action]
	svc    svc.PolicyManagementService
	logger echo.Logger
}

func New(service svc.PolicyManagementService, logger echo.Logger) *Container {
	return &Container{
		store:  store.New(Initial(), Reduce),
		svc:    service,
		logger: logger,
	}
}

func (c *Container) State() State {
	return c.store.State()
}

// Subscribe starts receiving snapshots of state. See store.Store.Subscribe.
func (c *Container) Subscribe(buffer int) (*store.Subscription[State], error) {
	return c.store.Subscribe(buffer)
}

// Close cancels operations and waits for them. After Close, state is frozen.
func (c *Container) Close() {
	c.store.Close()
}

func (c *Container) run(name string, op func(context.Context) error) (*store.Op, error) {
	if _, ok := c.store.Dispatch(SetStatus(Loading)); !ok {
		return nil, ErrClosed
	}
	return c.store.Go(func(ctx context.Context) error {
		c.store.Dispatch(SetStatus(Loading), SetPolicyError(""))

		if err := op(ctx); err != nil {
			if _, ok := c.store.Dispatch(SetPolicyError(err.Error()), SetStatus(Error)); ok {
				c.logger.Errorf("policy editor: %s failed: %s", name, err)
			}
			return err
		}
		c.store.Dispatch(SetStatus(Loaded))
		return nil
	})
}

// Load fetches the current and the draft policies, and starts editing the draft.
func (c *Container) Load() (*store.Op, error) {
	return c.run("load", c.reload)
}

// reload fetches the current and the draft policies concurrently.
//
// The current policy is set when it is fetched.
// The draft is set only when both are fetched.
func (c *Container) reload(ctx context.Context) error {
	var current, draft types.Policy
	var currentErr, draftErr error

	eg := new(errgroup.Group)
	eg.Go(func() error {
		current, currentErr = c.svc.GetCurrentPolicy(ctx)
		return nil
	})
	eg.Go(func() error {
		draft, draftErr = c.svc.GetDraftPolicy(ctx)
		return nil
	})
	eg.Wait()

	if currentErr != nil {
		return currentErr
	}
	if draftErr != nil {
		c.store.Dispatch(SetCurrentPolicy(&current))
		return draftErr
	}

	c.store.Dispatch(
		SetCurrentPolicy(&current),
		SetDraftPolicy(&draft),
		SetNewDraftPolicy(&draft),
	)
	return nil
}

// SetNewDraftPolicy stores an edit of the draft.
func (c *Container) SetNewDraftPolicy(p types.Policy) error {
	if _, ok := c.store.Dispatch(SetNewDraftPolicy(&p)); !ok {
		return ErrClosed
	}
	return nil
}

// CancelDraftChanges rolls the edit back to the draft.
func (c *Container) CancelDraftChanges() error {
	if _, ok := c.store.Dispatch(CancelDraftChanges()); !ok {
		return ErrClosed
	}
	return nil
}

// SaveDraftChanges saves the edit as the draft.
//
// The edit is read when the operation starts.
func (c *Container) SaveDraftChanges() (*store.Op, error) {
	return c.run("save draft", func(ctx context.Context) error {
		edit := c.store.State().NewDraftPolicy
		if edit == nil {
			return ErrNoDraft
		}
		if err := c.svc.SaveDraftPolicy(ctx, svc.UpdatePolicyRequest{Policy: *edit}); err != nil {
			return err
		}
		c.store.Dispatch(SetDraftPolicy(edit), SetIsPolicyChanged(false))
		return nil
	})
}

// PublishPolicy publishes the policy, then reloads policies.
func (c *Container) PublishPolicy(id uuid.UUID) (*store.Op, error) {
	return c.run("publish", func(ctx context.Context) error {
		if err := c.svc.PublishPolicy(ctx, svc.PublishPolicyRequest{PolicyId: id}); err != nil {
			return err
		}
		return c.reload(ctx)
	})
}

// DeleteDraftPolicy deletes the policy, then reloads policies.
func (c *Container) DeleteDraftPolicy(id uuid.UUID) (*store.Op, error) {
	return c.run("delete draft", func(ctx context.Context) error {
		if err := c.svc.DeletePolicy(ctx, svc.DeletePolicyRequest{PolicyId: id}); err != nil {
			return err
		}
		return c.reload(ctx)
	})
}

// LoadPolicyHistory fetches the history. Policies are sorted, newer first.
func (c *Container) LoadPolicyHistory() (*store.Op, error) {
	return c.run("load history", func(ctx context.Context) error {
		h, err := c.svc.GetPolicyHistory(ctx)
		if err != nil {
			return err
		}
		c.store.Dispatch(SetPolicyHistory(sortByCreatedDesc(h)))
		return nil
	})
}
