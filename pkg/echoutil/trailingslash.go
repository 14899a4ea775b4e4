package echoutil

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// AddTrailingSlash is middleware.AddTrailingSlashWithConfig which also
// updates the escaped path.
//
// Echo routes with URL.RawPath when it is set, for example when a path
// segment contains "%2F". The slash should be added to both of them.
func AddTrailingSlash(skipper middleware.Skipper) echo.MiddlewareFunc {
	slash := middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: skipper,
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return slash(func(c echo.Context) error {
			u := c.Request().URL
			if u.RawPath != "" && strings.HasSuffix(u.Path, "/") && !strings.HasSuffix(u.RawPath, "/") {
				u.RawPath += "/"
			}
			return next(c)
		})
	}
}
