package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/keystone-pos/keystone-pos/internal/accounting/accounts"
	"github.com/keystone-pos/keystone-pos/internal/accounting/journals"
	"github.com/keystone-pos/keystone-pos/internal/accounting/periods"
	"github.com/keystone-pos/keystone-pos/internal/accounting/reports"
	"github.com/keystone-pos/keystone-pos/internal/inventory"
	"github.com/keystone-pos/keystone-pos/internal/ledger"
	"github.com/keystone-pos/keystone-pos/internal/masterdata/products"
	"github.com/keystone-pos/keystone-pos/internal/masterdata/suppliers"
	"github.com/keystone-pos/keystone-pos/internal/observability"
	"github.com/keystone-pos/keystone-pos/internal/sales/customers"
	"github.com/keystone-pos/keystone-pos/internal/sales/orders"
	"github.com/keystone-pos/keystone-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	InventoryHandler *inventory.Handler
	LedgerHandler    *ledger.Handler
	PeriodsHandler   *periods.Handler
	JournalsHandler  *journals.Handler
	ReportsHandler   *reports.Handler
	AccountsHandler  *accounts.Handler
	OrdersHandler    *orders.Handler
	CustomersHandler *customers.Handler
	ProductsHandler  *products.Handler
	SuppliersHandler *suppliers.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
		r.Route("/accounting/periods", params.PeriodsHandler.MountRoutes)
		r.Route("/accounting/journals", params.JournalsHandler.MountRoutes)
		r.Route("/accounting/reports", params.ReportsHandler.MountRoutes)
		r.Route("/accounting/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/sales/orders", params.OrdersHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
