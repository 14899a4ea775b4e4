package handlers

import (
	"net/http"
	"net/url"
	"time"

	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
	svctx "github.com/glasswall/icap-management-ui/pkg/services/transactions"
	"github.com/labstack/echo/v4"
)

func GetTransactionsHandler(svc svctx.TransactionEventService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		filter := transactions.Filter{}
		if err := decodeJSON(c, &filter); err != nil {
			return err
		}

		resp, err := svc.GetTransactions(ctx, svctx.GetTransactionsRequest{Filter: filter})
		if err != nil {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// GetTransactionDetailsHandler answers the analysis report of a transaction.
//
// The path parameter is the directory of the transaction file, URL-escaped as one path segment.
func GetTransactionDetailsHandler(svc svctx.TransactionEventService, paramPath string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		dir, err := url.PathUnescape(c.Param(paramPath))
		if err != nil {
			return apierr.BadRequest("transaction file path is not escaped correctly", err)
		}

		resp, err := svc.GetTransactionDetails(
			ctx, svctx.GetTransactionDetailsRequest{TransactionFileDirectory: dir},
		)
		if err != nil {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// GetMetricsHandler answers metrics between query parameters "from" and "to" (RFC3339).
func GetMetricsHandler(svc svctx.TransactionEventService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		from, err := timeQuery(c, "from")
		if err != nil {
			return err
		}
		to, err := timeQuery(c, "to")
		if err != nil {
			return err
		}

		resp, err := svc.GetMetrics(ctx, svctx.GetMetricsRequest{FromDate: from, ToDate: to})
		if err != nil {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func timeQuery(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, apierr.BadRequest("query parameter '"+name+"' is required", nil)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apierr.BadRequest(
			"query parameter '"+name+"' should be RFC3339 date-time", err,
		)
	}
	return t, nil
}
