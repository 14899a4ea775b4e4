package main

import (
	"embed"
	"io/fs"
	"net/http"
	"slices"
	"strings"

	"github.com/glasswall/icap-management-ui/cmd/dashboard/handlers"
	"github.com/glasswall/icap-management-ui/pkg/configs/extras"
	"github.com/glasswall/icap-management-ui/pkg/echoutil"
	"github.com/glasswall/icap-management-ui/pkg/metrics"
	svcpolicy "github.com/glasswall/icap-management-ui/pkg/services/policy"
	svctx "github.com/glasswall/icap-management-ui/pkg/services/transactions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

//go:embed dist
var dist embed.FS

const API_ROOT = "/api"

// Deps are what the dashboard server serves.
type Deps struct {
	Policy       svcpolicy.PolicyManagementService
	Transactions svctx.TransactionEventService

	PolicySessions  handlers.PolicySessions
	HistorySessions handlers.HistorySessions

	Metrics     *metrics.Metrics
	RateLimiter *echoutil.RateLimiter

	Extras      extras.Config
	ProxyClient *http.Client

	// Static is the browser bundle. nil means the embedded one.
	Static fs.FS
}

// underApi tells the request is for the dashboard API.
func underApi(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == API_ROOT || strings.HasPrefix(p, API_ROOT+"/")
}

// NewEcho creates echo server logging at loglevel.
func NewEcho(loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	echoutil.SetLevel(e, loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	return e
}

// Route registers handlers of the dashboard to e.
func Route(e *echo.Echo, d Deps) {
	e.Pre(echoutil.AddTrailingSlash(func(c echo.Context) bool { return !underApi(c) }))
	e.Use(echoutil.LogHandlerFunc)
	e.Use(d.Metrics.Middleware)

	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	api := e.Group(API_ROOT)
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Middleware)
	}

	{
		policyId := "policyId"
		api.GET("/policy/current/", handlers.GetCurrentPolicyHandler(d.Policy))
		api.GET("/policy/draft/", handlers.GetDraftPolicyHandler(d.Policy))
		api.PUT("/policy/draft/", handlers.SaveDraftPolicyHandler(d.Policy))
		api.GET("/policy/history/", handlers.GetPolicyHistoryHandler(d.Policy))
		api.PUT("/policy/distribute/", handlers.DistributeAdaptionPolicyHandler(d.Policy))
		api.GET("/policy/:policyId/", handlers.GetPolicyHandler(d.Policy, policyId))
		api.PUT("/policy/:policyId/publish/", handlers.PublishPolicyHandler(d.Policy, policyId))
		api.DELETE("/policy/:policyId/", handlers.DeletePolicyHandler(d.Policy, policyId))
	}

	{
		api.POST("/transactions/", handlers.GetTransactionsHandler(d.Transactions))
		api.GET("/transactions/details/:path/", handlers.GetTransactionDetailsHandler(d.Transactions, "path"))
		api.GET("/transactions/metrics/", handlers.GetMetricsHandler(d.Transactions))
	}

	{
		ps := d.PolicySessions
		sid := "sessionId"
		api.POST("/sessions/policy/", ps.Open())
		api.GET("/sessions/policy/:sessionId/", ps.Get(sid))
		api.PUT("/sessions/policy/:sessionId/draft/", ps.Action(sid, handlers.SetNewDraftPolicy))
		api.POST("/sessions/policy/:sessionId/save/", ps.Action(sid, handlers.SaveDraftChanges))
		api.POST("/sessions/policy/:sessionId/cancel/", ps.Action(sid, handlers.CancelDraftChanges))
		api.POST("/sessions/policy/:sessionId/publish/", ps.Action(sid, handlers.PublishDraftPolicy))
		api.POST("/sessions/policy/:sessionId/delete/", ps.Action(sid, handlers.DeleteDraftPolicy))
		api.POST("/sessions/policy/:sessionId/history/", ps.Action(sid, handlers.LoadPolicyHistory))
		api.DELETE("/sessions/policy/:sessionId/", ps.Close(sid))
		api.GET("/sessions/policy/:sessionId/watch/", ps.Watch(sid))
	}

	{
		hs := d.HistorySessions
		sid := "sessionId"
		api.POST("/sessions/history/", hs.Open())
		api.GET("/sessions/history/:sessionId/", hs.Get(sid))
		api.PUT("/sessions/history/:sessionId/filters/", hs.Action(sid, handlers.SetFilters))
		api.POST("/sessions/history/:sessionId/refresh/", hs.Action(sid, handlers.RefreshTransactions))
		api.POST("/sessions/history/:sessionId/sort/", hs.Action(sid, handlers.ToggleTimestampSort))
		api.PUT("/sessions/history/:sessionId/selected/", hs.Action(sid, handlers.SelectFile))
		api.DELETE("/sessions/history/:sessionId/selected/", hs.Action(sid, handlers.CloseFile))
		api.POST("/sessions/history/:sessionId/metrics/", hs.Action(sid, handlers.LoadMetrics))
		api.DELETE("/sessions/history/:sessionId/", hs.Close(sid))
		api.GET("/sessions/history/:sessionId/watch/", hs.Watch(sid))
	}

	extraPaths := []string{}
	for _, ex := range d.Extras.Endpoints {
		extraPaths = append(extraPaths, ex.Path)
		e.Logger.Infof("register extra api: %s => %s (methods: %v)", ex.Path, ex.ProxyTo, ex.Methods)
		handlers.ExtraAPI(e, ex, d.ProxyClient)
	}

	static := d.Static
	if static == nil {
		static = echo.MustSubFS(dist, "dist")
	}
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			if underApi(c) || c.Path() == "/metrics" {
				return true
			}
			p := c.Request().URL.Path
			return slices.ContainsFunc(extraPaths, func(x string) bool {
				return p == x || strings.HasPrefix(p, x+"/")
			})
		},
		Filesystem: http.FS(static),
		HTML5:      true,
	}))
}
