package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/api/handler"
	"github.com/anziyang2000/hq-code-sub003/internal/api/middleware"
	"github.com/anziyang2000/hq-code-sub003/internal/api/spec"
	"github.com/anziyang2000/hq-code-sub003/internal/config"
	"github.com/anziyang2000/hq-code-sub003/internal/idempotency"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	svc       *service.ContractService
	idemStore *idempotency.Store
	redis     redis.Cmdable
}

// NewRouter wires the HTTP surface over svc. idemStore and redis are
// optional.
func NewRouter(cfg *config.Config, logger *zap.Logger, svc *service.ContractService, idemStore *idempotency.Store, redis redis.Cmdable) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, svc: svc, idemStore: idemStore, redis: redis}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	contractHandler := handler.NewContractHandler(api.svc)
	tokenHandler := handler.NewTokenHandler(api.svc)
	orderHandler := handler.NewOrderHandler(api.svc)
	creditHandler := handler.NewCreditHandler(api.svc)
	ticketHandler := handler.NewTicketHandler(api.svc)
	healthHandler := handler.NewHealthHandler(api.svc.Ready, api.redis)

	// Public Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	})

	// Protected Routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))
		r.Use(middleware.IdempotencyMiddleware(api.idemStore, api.logger))

		// Contract administration
		r.Post("/contract/initialize", contractHandler.Initialize)
		r.Get("/contract", contractHandler.Info)
		r.Get("/contract/name", contractHandler.Name)
		r.Get("/contract/symbol", contractHandler.Symbol)
		r.Get("/contract/org-admins", contractHandler.OrgAdmins)
		r.Post("/contract/org-admins", contractHandler.SetOrgAdmin)
		r.Get("/contract/lock", contractHandler.Lock)
		r.Post("/contract/lock", contractHandler.ToggleLock)
		r.Get("/contract/client-account-id", contractHandler.ClientAccountID)
		r.Get("/contract/client-account-balance", contractHandler.ClientAccountBalance)

		// Tokens
		r.Get("/tokens", tokenHandler.List)
		r.Post("/tokens", tokenHandler.Mint)
		r.Post("/tokens/split", tokenHandler.Split)
		r.Get("/tokens/supply", tokenHandler.TotalSupply)
		r.Get("/tokens/{tokenID}", tokenHandler.Get)
		r.Get("/tokens/{tokenID}/balance", tokenHandler.Balance)
		r.Get("/tokens/{tokenID}/owner", tokenHandler.Owner)
		r.Get("/tokens/{tokenID}/slot", tokenHandler.Slot)
		r.Get("/tokens/{tokenID}/uri", tokenHandler.URI)
		r.Post("/tokens/{tokenID}/burn", tokenHandler.Burn)
		r.Patch("/tokens/{tokenID}/ticket-info", tokenHandler.UpdateTicketInfo)
		r.Put("/tokens/{tokenID}/price-info", tokenHandler.UpdatePriceInfo)

		// Ticket maintenance
		r.Post("/tickets/verifications", ticketHandler.Verify)
		r.Post("/tickets/status-updates", ticketHandler.TimerUpdate)
		r.Post("/tickets/reissues", ticketHandler.Reissue)
		r.Patch("/stocks/{stockNumber}", ticketHandler.UpdateStock)

		// Orders and distribution
		r.Post("/orders", orderHandler.StoreOrder)
		r.Get("/orders/{orderID}", orderHandler.Get)
		r.Post("/refunds", orderHandler.StoreRefund)
		r.Post("/distributions", orderHandler.Distribution)
		r.Post("/activations", orderHandler.ActivateTickets)

		// Credit
		r.Post("/credits", creditHandler.StoreCreditInfo)
		r.Get("/credits/{assetsKey}", creditHandler.Get)
		r.Post("/credits/transfers", creditHandler.TransferCredit)
		r.Post("/payments", creditHandler.PaymentFlow)
	})

	return r
}
