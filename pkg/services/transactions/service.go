// Package transactions adapts the Transaction Event Service for the dashboard.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
	"github.com/glasswall/icap-management-ui/pkg/upstream"
	"github.com/labstack/echo/v4"
)

var ErrInvalidRequest = errors.New("transactions: invalid request")

type GetTransactionsRequest struct {
	Filter transactions.Filter
}

type GetTransactionDetailsRequest struct {
	TransactionFileDirectory string
}

type GetMetricsRequest struct {
	FromDate time.Time
	ToDate   time.Time
}

type TransactionEventService interface {
	GetTransactions(ctx context.Context, req GetTransactionsRequest) (transactions.GetTransactionsResponse, error)
	GetTransactionDetails(ctx context.Context, req GetTransactionDetailsRequest) (transactions.GetTransactionDetailsResponse, error)
	GetMetrics(ctx context.Context, req GetMetricsRequest) (transactions.GetMetricsResponse, error)
}

type service struct {
	api    upstream.TransactionEventApi
	logger echo.Logger
}

func New(api upstream.TransactionEventApi, logger echo.Logger) TransactionEventService {
	return &service{api: api, logger: logger}
}

func (s *service) GetTransactions(ctx context.Context, req GetTransactionsRequest) (transactions.GetTransactionsResponse, error) {
	if err := req.Filter.Verify(); err != nil {
		return transactions.GetTransactionsResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	s.logger.Info("Retrieving Transactions from the TransactionEventService")
	resp, err := s.api.GetTransactions(ctx, req.Filter)
	if err != nil {
		s.logger.Errorf("Could not get Transactions: %s", err)
		return transactions.GetTransactionsResponse{}, err
	}

	s.logger.Infof("Retrieved %d Transactions: %q", resp.Count, resp.FileIds())
	return resp, nil
}

func (s *service) GetTransactionDetails(ctx context.Context, req GetTransactionDetailsRequest) (transactions.GetTransactionDetailsResponse, error) {
	if req.TransactionFileDirectory == "" {
		return transactions.GetTransactionDetailsResponse{}, fmt.Errorf(
			"%w: transaction file directory is required", ErrInvalidRequest,
		)
	}

	s.logger.Infof(
		"Retrieving Transaction Details from the TransactionEventService - Directory: %s",
		req.TransactionFileDirectory,
	)
	resp, err := s.api.GetTransactionDetails(ctx, req.TransactionFileDirectory)
	if err != nil {
		s.logger.Errorf("Could not get Transaction Details: %s", err)
		return transactions.GetTransactionDetailsResponse{}, err
	}
	s.logger.Infof("Retrieved Transaction Details from file: %s", req.TransactionFileDirectory)
	return resp, nil
}

func (s *service) GetMetrics(ctx context.Context, req GetMetricsRequest) (transactions.GetMetricsResponse, error) {
	if req.FromDate.IsZero() || req.ToDate.IsZero() {
		return transactions.GetMetricsResponse{}, fmt.Errorf("%w: both of from and to are required", ErrInvalidRequest)
	}
	if req.ToDate.Before(req.FromDate) {
		return transactions.GetMetricsResponse{}, fmt.Errorf(
			"%w: to (%s) is before from (%s)", ErrInvalidRequest, req.ToDate, req.FromDate,
		)
	}

	s.logger.Info("Retrieving Metrics from the TransactionEventService")
	resp, err := s.api.GetMetrics(ctx, req.FromDate, req.ToDate)
	if err != nil {
		s.logger.Errorf("Could not get Metrics: %s", err)
		return transactions.GetMetricsResponse{}, err
	}
	s.logger.Info("Retrieved Metrics from the TransactionEventService")
	return resp, nil
}
