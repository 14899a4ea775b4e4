package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
	"github.com/glasswall/icap-management-ui/pkg/configs/extras"
	"github.com/glasswall/icap-management-ui/pkg/echoutil"
	"github.com/labstack/echo/v4"
)

type Rewriter func(req *url.URL) (*url.URL, error)

var ErrRewrite = errors.New("rewrite error")

// RewriteWith returns a Rewriter mapping requests under ep.Path onto ep.ProxyTo.
//
// Sub-path, query and fragment of the request are kept.
func RewriteWith(ep extras.Endpoint) Rewriter {
	sourcePath := strings.TrimSuffix(ep.Path, "/")

	return func(req *url.URL) (*url.URL, error) {
		dest := *ep.ProxyTo

		switch p := req.Path; {
		case p == sourcePath:
		case strings.HasPrefix(p, sourcePath+"/"):
			sub := strings.TrimPrefix(p, sourcePath+"/")
			if sub == "" {
				sub = "/"
			}
			dest = *dest.JoinPath(sub)
		default:
			return nil, fmt.Errorf("%w: path prefix is not match: %s", ErrRewrite, p)
		}

		dest.Fragment = req.Fragment
		dest.RawQuery = req.RawQuery
		return &dest, nil
	}
}

// every method an extra endpoint proxies when it does not restrict methods.
var anyMethod = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// ExtraAPI registers passthrough routes of the endpoint, for its path and paths under it.
//
// Methods not listed in the endpoint are answered with 405 Method Not Allowed.
func ExtraAPI(e *echo.Echo, ep extras.Endpoint, client *http.Client) {
	rew := RewriteWith(ep)

	proxyer := func(c echo.Context) error {
		dest, err := rew(c.Request().URL)
		if err != nil {
			return apierr.NotFound("", err)
		}
		return echoutil.Proxy(c, client, dest.String())
	}

	methods := ep.Methods
	if len(methods) == 0 {
		methods = anyMethod
	}
	e.Match(methods, path.Clean(ep.Path), proxyer)
	e.Match(methods, path.Join(ep.Path, "*"), proxyer)
}
