package handlers

import (
	"context"
	"errors"

	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
	"github.com/glasswall/icap-management-ui/pkg/api/types/transactions"
	svcpolicy "github.com/glasswall/icap-management-ui/pkg/services/policy"
	svctx "github.com/glasswall/icap-management-ui/pkg/services/transactions"
	"github.com/glasswall/icap-management-ui/pkg/session"
	"github.com/glasswall/icap-management-ui/pkg/state/history"
	"github.com/glasswall/icap-management-ui/pkg/state/policy"
	"github.com/glasswall/icap-management-ui/pkg/state/store"
	"github.com/glasswall/icap-management-ui/pkg/upstream"
	"github.com/labstack/echo/v4"
)

// httpError converts err into *echo.HTTPError.
//
// ctx is the context of the request. When it is done, the request is regarded as cancelled.
func httpError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if he := new(echo.HTTPError); errors.As(err, &he) {
		return he
	}

	switch {
	case ctx.Err() != nil:
		return apierr.ServiceUnavailable("request is cancelled.", err)
	case errors.Is(err, upstream.ErrNotFound):
		return apierr.NotFound("", err)
	case errors.Is(err, svcpolicy.ErrInvalidRequest),
		errors.Is(err, svctx.ErrInvalidRequest),
		errors.Is(err, transactions.ErrInvalidFilter),
		errors.Is(err, history.ErrInvalidTimeFilter):
		return apierr.BadRequest(err.Error(), err)
	case errors.Is(err, history.ErrFileNotFound):
		return apierr.NotFound("file is not found in loaded transactions", err)
	case errors.Is(err, policy.ErrNoDraft):
		return apierr.Conflict(
			"no draft policy",
			apierr.WithAdvice("load policies before saving the draft."),
			apierr.WithError(err),
		)
	case errors.Is(err, session.ErrInvalidToken):
		return apierr.Unauthorized("session token is invalid or expired. open a new session.", err)
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, store.ErrClosed):
		return apierr.NotFound("session is not found", err)
	case errors.Is(err, upstream.ErrUpstream):
		return apierr.BadGateway("upstream service responded with an error", err)
	case errors.Is(err, upstream.ErrUnreachable):
		return apierr.BadGateway("upstream service is unreachable", err)
	case errors.Is(err, upstream.ErrUnexpectedResponse):
		return apierr.BadGateway("upstream service responded unexpectedly", err)
	default:
		return apierr.InternalServerError(err)
	}
}
