package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nearbasket/nearbasket-backend/api/controllers"
	"github.com/nearbasket/nearbasket-backend/api/middleware"
	"github.com/nearbasket/nearbasket-backend/internal/cart"
	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/ledger"
	"github.com/nearbasket/nearbasket-backend/internal/notifications"
	"github.com/nearbasket/nearbasket-backend/internal/orders"
	"github.com/nearbasket/nearbasket-backend/internal/promos"
	"github.com/nearbasket/nearbasket-backend/internal/returns"
	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/metrics"
	"github.com/nearbasket/nearbasket-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Cart          cart.Service
	Orders        orders.Service
	Returns       returns.Service
	Geo           geo.Service
	Promos        promos.Service
	Wallet        wallet.Service
	Ledger        ledger.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
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
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}

	// Zone lookup is public so storefronts can show serviceability
	// before the buyer signs in.
	r.Get("/api/v1/zones/locate", controllers.LocateZone(svcs.Geo, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(svcs.Cart, logg))
				r.Delete("/", controllers.ClearCart(svcs.Cart, logg))
				r.Post("/items", controllers.AddCartItem(svcs.Cart, logg))
				r.Patch("/items/{itemID}", controllers.UpdateCartItem(svcs.Cart, logg))
				r.Delete("/items/{itemID}", controllers.RemoveCartItem(svcs.Cart, logg))
				r.Post("/items/{itemID}/save-for-later", controllers.SaveCartItemForLater(svcs.Cart, logg))
				r.Post("/items/{itemID}/move-to-cart", controllers.MoveCartItemToCart(svcs.Cart, logg))
				r.Post("/reconcile", controllers.ReconcileCart(svcs.Cart, logg))
				r.Put("/delivery", controllers.SetCartDelivery(svcs.Cart, logg))
			})

			r.Get("/checkout/quote", controllers.CheckoutQuote(svcs.Orders, logg))
			r.Post("/checkout", controllers.Checkout(svcs.Orders, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListMyOrders(svcs.Orders, logg))
				r.Get("/{orderID}", controllers.GetOrder(svcs.Orders, logg))
				r.Post("/items/{itemID}/cancel", controllers.CancelOrderItem(svcs.Orders, logg))
			})

			r.Route("/returns", func(r chi.Router) {
				r.Post("/", controllers.RequestReturn(svcs.Returns, logg))
				r.Get("/", controllers.ListMyReturns(svcs.Returns, logg))
				r.Get("/{returnID}", controllers.GetReturn(svcs.Returns, logg))
				r.Post("/{returnID}/cancel", controllers.CancelReturn(svcs.Returns, logg))
			})

			r.Post("/promos/validate", controllers.ValidatePromo(svcs.Promos, logg))

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", controllers.WalletBalance(svcs.Wallet, logg))
				r.Get("/transactions", controllers.WalletHistory(svcs.Wallet, logg))
			})
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireSeller(logg))

			r.Get("/orders", controllers.ListSellerOrders(svcs.Orders, logg))
			r.Post("/orders/items/{itemID}/action", controllers.SellerItemAction(svcs.Orders, logg))
			r.Get("/returns", controllers.ListSellerReturns(svcs.Returns, logg))
			r.Post("/returns/{returnID}/approve", controllers.ApproveReturn(svcs.Returns, logg))
			r.Route("/statements", func(r chi.Router) {
				r.Get("/", controllers.ListSellerStatements(svcs.Ledger, logg))
				r.Get("/pending-balance", controllers.SellerPendingBalance(svcs.Ledger, logg))
				r.Post("/settle", controllers.SettleSellerStatements(svcs.Ledger, logg))
			})
		})

		r.Route("/courier", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleCourier))

			r.Post("/seller-orders/{sellerOrderID}/collect", controllers.CourierCollect(svcs.Orders, logg))
			r.Post("/orders/{orderID}/deliver", controllers.CourierDeliver(svcs.Orders, logg))
			r.Get("/orders/{orderID}/route", controllers.CourierRoute(svcs.Orders, logg))
			r.Post("/returns/{returnID}/accept", controllers.AcceptReturnPickup(svcs.Returns, logg))
			r.Post("/returns/{returnID}/pickup-status", controllers.UpdateReturnPickupStatus(svcs.Returns, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	return r
}
