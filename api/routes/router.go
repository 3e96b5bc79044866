package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/financialpress/fpt-ledger/api/controllers"
	"github.com/financialpress/fpt-ledger/api/middleware"
	"github.com/financialpress/fpt-ledger/internal/accounts"
	"github.com/financialpress/fpt-ledger/internal/balancecache"
	"github.com/financialpress/fpt-ledger/internal/engagement"
	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/internal/rewards"
	"github.com/financialpress/fpt-ledger/internal/tips"
	"github.com/financialpress/fpt-ledger/pkg/config"
	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/enums"
	"github.com/financialpress/fpt-ledger/pkg/logger"
	"github.com/financialpress/fpt-ledger/pkg/redis"
)

// Services groups the wired service layer the router exposes over HTTP.
type Services struct {
	Accounts     accounts.Service
	Ledger       ledger.Service
	Engagement   engagement.Service
	Tips         tips.Service
	Rewards      rewards.Service
	BalanceCache balancecache.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, redisClient, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		// Accounts are opened by the platform, not by the member themselves.
		r.With(middleware.RequireRole(logg, enums.AccountRoleAdmin, enums.AccountRoleService)).
			Post("/accounts", controllers.AccountCreate(svcs.Accounts, logg))

		r.Route("/accounts/{accountId}", func(r chi.Router) {
			r.Get("/", controllers.AccountGet(svcs.Accounts, logg))
			r.Get("/balance", controllers.AccountBalance(svcs.BalanceCache, logg))
			r.Get("/transactions", controllers.LedgerTransactions(svcs.Ledger, logg))
			r.Post("/deactivate", controllers.AccountDeactivate(svcs.Accounts, svcs.BalanceCache, logg))
			r.Post("/credit", controllers.LedgerCredit(svcs.Ledger, svcs.BalanceCache, logg))
			r.Post("/debit", controllers.LedgerDebit(svcs.Ledger, svcs.BalanceCache, logg))
		})

		r.Post("/engagement-events", controllers.EngagementRecord(svcs.Engagement, svcs.BalanceCache, logg))
		r.Post("/tips", controllers.TipSend(svcs.Tips, svcs.BalanceCache, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.AccountRoleAdmin))
		if redisClient != nil {
			r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))
		}

		r.Route("/reward-rules", func(r chi.Router) {
			r.Get("/", controllers.RewardRulesList(svcs.Rewards, logg))
			r.Put("/{kind}", controllers.RewardRuleUpsert(svcs.Rewards, logg))
		})

		r.Get("/posts/{postId}/engagement-events", controllers.EngagementListByPost(svcs.Engagement, logg))
	})

	return r
}
