package main

import (
	"context"
	"crypto/rand"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/glasswall/icap-management-ui/cmd/dashboard/handlers"
	kcf "github.com/glasswall/icap-management-ui/pkg/configs/dashboard"
	"github.com/glasswall/icap-management-ui/pkg/configs/extras"
	"github.com/glasswall/icap-management-ui/pkg/echoutil"
	"github.com/glasswall/icap-management-ui/pkg/loop"
	"github.com/glasswall/icap-management-ui/pkg/metrics"
	svcpolicy "github.com/glasswall/icap-management-ui/pkg/services/policy"
	svctx "github.com/glasswall/icap-management-ui/pkg/services/transactions"
	"github.com/glasswall/icap-management-ui/pkg/session"
	"github.com/glasswall/icap-management-ui/pkg/state/history"
	"github.com/glasswall/icap-management-ui/pkg/state/policy"
	"github.com/glasswall/icap-management-ui/pkg/upstream"
	"github.com/glasswall/icap-management-ui/pkg/utils/filewatch"
)

func main() {
	configPath := flag.String("config-path", os.Getenv("DASHBOARD_CONFIG"), "dashboard config path. (env: DASHBOARD_CONFIG)")
	extraConfigPath := flag.String("extra-apis-config", "", "path to extra api config file")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	e := NewEcho(*loglevel)

	// read configfile
	conf, err := kcf.LoadDashboardConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	watched := []string{*configPath}
	extraApis := extras.Config{}
	if *extraConfigPath != "" {
		x, err := extras.Load(*extraConfigPath)
		if err != nil {
			log.Fatalf("can not read configration: %s", err)
		}
		extraApis = x
		watched = append(watched, *extraConfigPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	{
		wctx, stop, err := filewatch.UntilModifyContext(ctx, watched...)
		if err != nil {
			log.Fatalf("can not watch configration: %s", err)
		}
		defer stop()
		context.AfterFunc(wctx, func() {
			if ctx.Err() != nil {
				return
			}
			log.Println("config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by config update: %s", err)
			}
		})
	}

	m := metrics.New()
	upconf := conf.Upstream()
	clientOpts := []upstream.Option{
		upstream.WithUpstreamConfig(upconf),
		upstream.WithMetrics(m),
		upstream.WithLogger(e.Logger),
	}
	policyService := svcpolicy.New(
		upstream.NewPolicyManagementApi(conf.Policy(), clientOpts...), e.Logger,
	)
	transactionService := svctx.New(
		upstream.NewTransactionEventApi(conf.RequestHistory(), clientOpts...), e.Logger,
	)

	sconf := conf.Sessions()
	signingKey := sconf.SigningKey
	if signingKey == nil {
		signingKey = make([]byte, 32)
		if _, err := rand.Read(signingKey); err != nil {
			log.Fatalf("can not generate session signing key: %s", err)
		}
		e.Logger.Warn("session signing key is not configured. sessions do not survive restart.")
	}
	issuer := session.NewIssuer(signingKey, time.Now)

	policySessions := session.NewManager[*policy.Container](
		session.KindPolicy, issuer, sconf.TTL,
		session.WithMetrics(m), session.WithLogger(e.Logger),
	)
	historySessions := session.NewManager[*history.Container](
		session.KindHistory, issuer, sconf.TTL,
		session.WithMetrics(m), session.WithLogger(e.Logger),
	)
	sweep := max(time.Second, sconf.TTL/4)
	go policySessions.Run(ctx, sweep)
	go historySessions.Run(ctx, sweep)

	climit := conf.Clients()
	limiter := echoutil.NewRateLimiter(climit.PerSecond, climit.Burst)
	go loop.Start(ctx, 0, func(context.Context, int) (int, loop.Next) {
		if n := limiter.Forget(10 * time.Minute); 0 < n {
			e.Logger.Debugf("rate limiter: forgot %d idle clients", n)
		}
		return 0, loop.Continue(time.Minute)
	})

	Route(e, Deps{
		Policy:       policyService,
		Transactions: transactionService,
		PolicySessions: handlers.NewPolicySessions(
			policySessions,
			func() *policy.Container { return policy.New(policyService, e.Logger) },
		),
		HistorySessions: handlers.NewHistorySessions(
			historySessions,
			func() *history.Container {
				return history.New(transactionService, e.Logger, history.WithWindow(sconf.HistoryWindow))
			},
		),
		Metrics:     m,
		RateLimiter: limiter,
		Extras:      extraApis,
		ProxyClient: &http.Client{},
	})

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		err = e.StartTLS(":"+conf.ServerPort(), cert, key)
	} else {
		err = e.Start(":" + conf.ServerPort())
	}
	if err != nil && err != http.ErrServerClosed {
		e.Logger.Fatal(err)
	}
}
