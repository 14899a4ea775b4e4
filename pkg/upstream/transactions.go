package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
	kcf "github.com/glasswall/icap-management-ui/pkg/configs/dashboard"
)

// TransactionEventApi is the client of the Transaction Event Service.
type TransactionEventApi interface {
	// GetTransactions queries transactions.
	GetTransactions(ctx context.Context, filter transactions.Filter) (transactions.GetTransactionsResponse, error)

	// GetTransactionDetails gets the analysis report of a transaction,
	// stored in the directory.
	GetTransactionDetails(ctx context.Context, directory string) (transactions.GetTransactionDetailsResponse, error)

	// GetMetrics gets counts of processed files in the time range.
	GetMetrics(ctx context.Context, from, to time.Time) (transactions.GetMetricsResponse, error)
}

const TransactionService = "transaction-event"

type transactionApi struct {
	c    *caller
	conf kcf.TransactionServiceConfig
}

func NewTransactionEventApi(conf kcf.TransactionServiceConfig, opts ...Option) TransactionEventApi {
	return &transactionApi{
		c:    newCaller(TransactionService, conf.BaseUrl, opts...),
		conf: conf,
	}
}

// GetTransactions is read only, but it is POST. So it is not retried.
func (t *transactionApi) GetTransactions(ctx context.Context, filter transactions.Filter) (transactions.GetTransactionsResponse, error) {
	var ret transactions.GetTransactionsResponse
	if err := t.c.do(ctx, call{
		operation: "GetTransactions",
		method:    http.MethodPost,
		path:      t.conf.GetTransactionsPath,
		body:      filter,
		messageFor: MessageFor{
			Status4xx: "transaction filter is rejected",
			Status5xx: "server error on getting transactions",
		},
	}, &ret); err != nil {
		return transactions.GetTransactionsResponse{}, err
	}
	return ret, nil
}

func (t *transactionApi) GetTransactionDetails(ctx context.Context, directory string) (transactions.GetTransactionDetailsResponse, error) {
	var ret transactions.GetTransactionDetailsResponse
	if err := t.c.do(ctx, call{
		operation: "GetTransactionDetails",
		method:    http.MethodGet,
		path:      t.conf.GetTransactionDetailsPath,
		query:     url.Values{"transactionFilePath": []string{directory}},
		messageFor: MessageFor{
			Status4xx: fmt.Sprintf("transaction details for %s are not found", directory),
			Status5xx: "server error on getting transaction details",
		},
	}, &ret); err != nil {
		return transactions.GetTransactionDetailsResponse{}, err
	}
	return ret, nil
}

func (t *transactionApi) GetMetrics(ctx context.Context, from, to time.Time) (transactions.GetMetricsResponse, error) {
	var ret transactions.GetMetricsResponse
	if err := t.c.do(ctx, call{
		operation: "GetMetrics",
		method:    http.MethodGet,
		path:      t.conf.GetMetricsPath,
		query: url.Values{
			"fromDate": []string{from.UTC().Format(time.RFC3339)},
			"toDate":   []string{to.UTC().Format(time.RFC3339)},
		},
		messageFor: MessageFor{
			Status4xx: "metrics are not available",
			Status5xx: "server error on getting metrics",
		},
	}, &ret); err != nil {
		return transactions.GetMetricsResponse{}, err
	}
	return ret, nil
}
