package handlers

import (
	"net/http"

	"github.com/chris/escrow-contracts/pkg/api"
	"github.com/chris/escrow-contracts/pkg/handlers/contracts"
	"github.com/chris/escrow-contracts/pkg/handlers/payments"
	"github.com/chris/escrow-contracts/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ApiHandler implements the API server interface by composing the
// contracts and payments handlers.
type ApiHandler struct {
	*contracts.ContractsHandler
	*payments.PaymentsHandler
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(c *contracts.ContractsHandler, p *payments.PaymentsHandler) *ApiHandler {
	return &ApiHandler{ContractsHandler: c, PaymentsHandler: p}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

// NewRouter mounts the API, the metrics endpoint and the middleware stack on a chi router.
func NewRouter(handler api.ServerInterface, jwtSecret []byte, logger *zap.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Authenticate(jwtSecret, logger))
	router.Use(middleware.NewStructuredLogger(logger))

	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return api.HandlerFromMux(handler, router)
}
