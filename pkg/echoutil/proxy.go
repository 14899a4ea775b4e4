package echoutil

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
	"github.com/labstack/echo/v4"
)

// headers which are not forwarded by Proxy.
var hopByHop = []string{
	"Connection", "Keep-Alive", "Proxy-Connection", "Proxy-Authenticate",
	"Proxy-Authorization", "Te", "Upgrade", "Host",
}

// Proxy sends the request of c to dest and writes back the response.
//
// Headers, body and trailers are forwarded in both directions.
// Chunked responses are flushed chunk by chunk.
//
// When dest cannot be reached, Proxy returns 502 Bad Gateway as *echo.HTTPError.
func Proxy(c echo.Context, client *http.Client, dest string) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := newOutboundRequest(c.Request(), dest)
	if err != nil {
		return apierr.InternalServerError(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := c.Request().Context().Err(); ctxErr != nil {
			return apierr.ServiceUnavailable("request is cancelled.", ctxErr)
		}
		return apierr.BadGateway("proxy destination is not reachable", err)
	}
	defer resp.Body.Close()

	return CopyResponse(c, resp)
}

func newOutboundRequest(src *http.Request, dest string) (*http.Request, error) {
	body := &onEOF{base: src.Body}
	req, err := http.NewRequestWithContext(src.Context(), src.Method, dest, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = src.ContentLength
	switch {
	case len(src.Trailer) != 0:
		req.ContentLength = -1 // trailers are sent only in chunked encoding
	case src.ContentLength == 0:
		req.Body = http.NoBody
	}

	CopyHeader(req.Header, src.Header, hopByHop...)
	req.TransferEncoding = append(req.TransferEncoding, src.TransferEncoding...)

	if len(src.Trailer) != 0 {
		req.Trailer = http.Header{}
		for k := range src.Trailer {
			req.Trailer[k] = nil
		}
		// trailer values are available after whole body is read.
		body.hook = func() { CopyHeader(req.Trailer, src.Trailer) }
	}
	return req, nil
}

// CopyHeader adds all values in src to dest, except names listed in except.
func CopyHeader(dest http.Header, src http.Header, except ...string) {
	for k, vs := range src {
		if containsFold(except, k) {
			continue
		}
		for _, v := range vs {
			dest.Add(k, v)
		}
	}
}

func containsFold(set []string, s string) bool {
	for _, x := range set {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}

// CopyResponse writes resp as the response of c.
func CopyResponse(c echo.Context, resp *http.Response) error {
	ctx := c.Request().Context()

	dst := c.Response()
	CopyHeader(dst.Header(), resp.Header, hopByHop...)

	chunked := false
	for _, te := range resp.TransferEncoding {
		dst.Header().Add("Transfer-Encoding", te)
		if strings.EqualFold(te, "chunked") {
			chunked = true
		}
	}
	for trailer := range resp.Trailer {
		dst.Header().Add("Trailer", trailer)
	}

	dst.WriteHeader(resp.StatusCode)

	src := &onEOF{
		base: resp.Body,
		hook: func() { CopyHeader(dst.Header(), resp.Trailer) },
	}
	if !chunked {
		_, err := io.Copy(dst, src)
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := src.Read(buf)
		if 0 < n {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			dst.Flush()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// onEOF calls hook once, when base reaches EOF.
type onEOF struct {
	base io.Reader
	hook func()
	once sync.Once
}

func (r *onEOF) Read(p []byte) (int, error) {
	if r.base == nil {
		r.fire()
		return 0, io.EOF
	}
	n, err := r.base.Read(p)
	if errors.Is(err, io.EOF) {
		r.fire()
	}
	return n, err
}

func (r *onEOF) fire() {
	r.once.Do(func() {
		if r.hook != nil {
			r.hook()
		}
	})
}

func (r *onEOF) Close() error {
	if c, ok := r.base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
