package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
	svc "github.com/glasswall/icap-management-ui/pkg/services/transactions"
	"github.com/glasswall/icap-management-ui/pkg/state/store"
	"github.com/labstack/echo/v4"
)

var (
	// ErrClosed is returned for operations on a closed Container.
	ErrClosed = store.ErrClosed

	ErrInvalidTimeFilter = errors.New("history: invalid time filter")

	// ErrFileNotFound is returned when selecting a file which is not loaded.
	ErrFileNotFound = errors.New("history: file not found in transactions")
)

type Option func(*Container) *Container

// WithClock sets the clock deciding the default time filter.
func WithClock(now func() time.Time) Option {
	return func(c *Container) *Container {
		c.now = now
		return c
	}
}

// WithWindow sets the length of the default time filter.
//
// Non-positive window is ignored.
func WithWindow(window time.Duration) Option {
	return func(c *Container) *Container {
		if 0 < window {
			c.window = window
		}
		return c
	}
}

// Container is the transaction history view.
//
// Fetching transactions again cancels the previous fetch.
// Selecting or closing a file cancels the fetch of the previous analysis report.
type Container struct {
	store  *store.Store[State, Action]
	svc    svc.TransactionEventService
	logger echo.Logger
	now    func() time.Time
	window time.Duration

	mu            sync.Mutex
	cancelFetch   context.CancelFunc
	cancelDetails context.CancelFunc

	// generations of the latest fetches. results of older ones are discarded.
	fetchGen   uint64
	detailsGen uint64
}

func New(service svc.TransactionEventService, logger echo.Logger, opts ...Option) *Container {
	c := &Container{svc: service, logger: logger, now: time.Now, window: DefaultWindow}
	for _, opt := range opts {
		c = opt(c)
	}
	c.store = store.New(Initial(Last(c.now(), c.window)), Reduce)
	return c
}

func (c *Container) State() State {
	return c.store.State()
}

// Subscribe starts receiving snapshots of state. See store.Store.Subscribe.
func (c *Container) Subscribe(buffer int) (*store.Subscription[State], error) {
	return c.store.Subscribe(buffer)
}

// Close cancels requests in flight and waits for them. After Close, state is frozen.
func (c *Container) Close() {
	c.store.Close()
}

// SetFilters replaces filter chips, and fetches transactions.
func (c *Container) SetFilters(chips []FilterChip) (*store.Op, error) {
	return c.refetch(setFilters(chips))
}

// SetTimeFilter replaces the time range, and fetches transactions.
func (c *Container) SetTimeFilter(start, end time.Time) (*store.Op, error) {
	tf, err := timeFilter(start, end)
	if err != nil {
		return nil, err
	}
	return c.refetch(setTimeFilter(tf))
}

// SetQuery replaces filter chips and the time range at once, and fetches transactions.
func (c *Container) SetQuery(chips []FilterChip, start, end time.Time) (*store.Op, error) {
	tf, err := timeFilter(start, end)
	if err != nil {
		return nil, err
	}
	return c.refetch(setFilters(chips), setTimeFilter(tf))
}

func timeFilter(start, end time.Time) (TimeFilter, error) {
	if start.IsZero() || end.IsZero() {
		return TimeFilter{}, fmt.Errorf("%w: both of start and end are required", ErrInvalidTimeFilter)
	}
	if end.Before(start) {
		return TimeFilter{}, fmt.Errorf("%w: end (%s) is before start (%s)", ErrInvalidTimeFilter, end, start)
	}
	return TimeFilter{TimestampRangeStart: start, TimestampRangeEnd: end}, nil
}

// Refresh fetches transactions with the current filters.
func (c *Container) Refresh() (*store.Op, error) {
	return c.refetch()
}

func (c *Container) refetch(actions ...Action) (*store.Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	if _, ok := c.store.Dispatch(append(actions, startLoading)...); !ok {
		return nil, ErrClosed
	}
	c.fetchGen += 1
	gen := c.fetchGen
	op, cancel, err := c.store.GoCancellable(func(ctx context.Context) error {
		return c.fetch(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	c.cancelFetch = cancel
	return op, nil
}

func (c *Container) fetch(ctx context.Context, gen uint64) error {
	filter := c.store.State().Filter()
	resp, err := c.svc.GetTransactions(ctx, svc.GetTransactionsRequest{Filter: filter})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.fetchGen {
		// replaced by a newer fetch. the result is stale.
		return context.Canceled
	}
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if err != nil {
		c.logger.Errorf("history view: fetching transactions failed: %s", err)
		c.store.Dispatch(setTransactionsError(err.Error()))
		return err
	}
	c.store.Dispatch(setTransactions(resp))
	return nil
}

// ToggleTimestampSort flips the sort direction and sorts loaded transactions again.
func (c *Container) ToggleTimestampSort() error {
	if _, ok := c.store.Dispatch(toggleTimestampSort); !ok {
		return ErrClosed
	}
	return nil
}

// SelectFile opens the file in loaded transactions, and fetches its analysis report.
func (c *Container) SelectFile(fileId string) (*store.Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.store.State()
	if s.Transactions == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileId)
	}
	file, ok := s.Transactions.Find(fileId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileId)
	}

	if c.cancelDetails != nil {
		c.cancelDetails()
	}
	if _, ok := c.store.Dispatch(selectFile(file)); !ok {
		return nil, ErrClosed
	}
	c.detailsGen += 1
	gen := c.detailsGen
	op, cancel, err := c.store.GoCancellable(func(ctx context.Context) error {
		details, err := c.svc.GetTransactionDetails(
			ctx, svc.GetTransactionDetailsRequest{TransactionFileDirectory: file.Directory},
		)

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.detailsGen {
			return context.Canceled
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			c.logger.Errorf("history view: fetching analysis report of %s failed: %s", fileId, err)
			details = transactions.GetTransactionDetailsResponse{Status: transactions.DetailsFailed}
		}
		c.store.Dispatch(setDetails(fileId, details))
		return err
	})
	if err != nil {
		return nil, err
	}
	c.cancelDetails = cancel
	return op, nil
}

// CloseFile closes the opened file.
func (c *Container) CloseFile() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelDetails != nil {
		c.cancelDetails()
		c.cancelDetails = nil
	}
	c.detailsGen += 1
	if _, ok := c.store.Dispatch(closeFile); !ok {
		return ErrClosed
	}
	return nil
}

// LoadMetrics fetches metrics between from and to.
func (c *Container) LoadMetrics(from, to time.Time) (*store.Op, error) {
	if _, ok := c.store.Dispatch(startLoadingMetrics); !ok {
		return nil, ErrClosed
	}
	return c.store.Go(func(ctx context.Context) error {
		m, err := c.svc.GetMetrics(ctx, svc.GetMetricsRequest{FromDate: from, ToDate: to})
		if err != nil {
			if _, ok := c.store.Dispatch(setMetricsError(err.Error())); ok {
				c.logger.Errorf("history view: fetching metrics failed: %s", err)
			}
			return err
		}
		c.store.Dispatch(setMetrics(m))
		return nil
	})
}
