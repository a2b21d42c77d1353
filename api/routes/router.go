package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arjunvnair/modakart-backend/api/controllers"
	"github.com/arjunvnair/modakart-backend/api/middleware"
	addresssvc "github.com/arjunvnair/modakart-backend/internal/address"
	authsvc "github.com/arjunvnair/modakart-backend/internal/auth"
	cartsvc "github.com/arjunvnair/modakart-backend/internal/cart"
	couponsvc "github.com/arjunvnair/modakart-backend/internal/coupons"
	offersvc "github.com/arjunvnair/modakart-backend/internal/offers"
	ordersvc "github.com/arjunvnair/modakart-backend/internal/orders"
	productsvc "github.com/arjunvnair/modakart-backend/internal/products"
	walletsvc "github.com/arjunvnair/modakart-backend/internal/wallet"
	wishlistsvc "github.com/arjunvnair/modakart-backend/internal/wishlist"
	"github.com/arjunvnair/modakart-backend/pkg/config"
	"github.com/arjunvnair/modakart-backend/pkg/db"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	"github.com/arjunvnair/modakart-backend/pkg/logger"
	"github.com/arjunvnair/modakart-backend/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	Metrics http.Handler

	Auth      authsvc.Service
	Products  productsvc.Service
	Cart      cartsvc.Service
	Wishlist  wishlistsvc.Service
	Orders    ordersvc.Service
	Wallet    walletsvc.Service
	Coupons   couponsvc.Service
	Offers    offersvc.Service
	Addresses addresssvc.Service
}

// NewRouter assembles the HTTP surface: public catalog and auth,
// authenticated customer routes, and the admin back office.
func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/otp/request", controllers.AuthRequestOTP(deps.Auth, cfg, logg))
		r.Post("/otp/verify", controllers.AuthVerifyOTP(deps.Auth, logg))
	})

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{productId}", controllers.ProductGet(deps.Products, logg))
		r.Get("/categories", controllers.CategoryList(deps.Products, logg))
		r.Get("/brands", controllers.BrandList(deps.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/me", controllers.AuthProfile(deps.Auth, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistGet(deps.Wishlist, logg))
			r.Post("/", controllers.WishlistAdd(deps.Wishlist, logg))
			r.Delete("/{productId}", controllers.WishlistRemove(deps.Wishlist, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(deps.Addresses, logg))
			r.Post("/", controllers.AddressCreate(deps.Addresses, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(deps.Addresses, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(deps.Addresses, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletGet(deps.Wallet, logg))
			r.Get("/transactions", controllers.WalletStatement(deps.Wallet, logg))
			r.Post("/topup", controllers.WalletTopUp(deps.Wallet, logg))
			r.Post("/topup/confirm", controllers.WalletConfirmTopUp(deps.Wallet, logg))
		})

		r.Get("/coupons/eligible", controllers.CouponsEligible(deps.Coupons, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderPlace(deps.Orders, logg))
			r.Post("/confirm", controllers.OrderConfirmGateway(deps.Orders, logg))
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderGet(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
			r.Post("/{orderId}/retry-payment", controllers.OrderRetryPayment(deps.Orders, logg))
			r.Post("/{orderId}/retry-payment/confirm", controllers.OrderConfirmRetry(deps.Orders, logg))
			r.Post("/{orderId}/items/{itemId}/cancel", controllers.OrderCancelItem(deps.Orders, logg))
			r.Post("/{orderId}/items/{itemId}/return", controllers.OrderRequestReturn(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))
			r.Post("/{productId}/variants", controllers.AdminAddVariant(deps.Products, logg))
		})
		r.Delete("/variants/{variantId}", controllers.AdminRemoveVariant(deps.Products, logg))
		r.Post("/categories", controllers.AdminCreateCategory(deps.Products, logg))
		r.Post("/brands", controllers.AdminCreateBrand(deps.Products, logg))

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminCouponList(deps.Coupons, logg))
			r.Post("/", controllers.AdminCouponCreate(deps.Coupons, logg))
			r.Patch("/{couponId}", controllers.AdminCouponUpdate(deps.Coupons, logg))
			r.Delete("/{couponId}", controllers.AdminCouponDelete(deps.Coupons, logg))
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", controllers.AdminOfferList(deps.Offers, logg))
			r.Post("/", controllers.AdminOfferCreate(deps.Offers, logg))
			r.Patch("/{offerId}", controllers.AdminOfferUpdate(deps.Offers, logg))
			r.Delete("/{offerId}", controllers.AdminOfferDelete(deps.Offers, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
			r.Get("/return-requests", controllers.AdminReturnRequests(deps.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderGet(deps.Orders, logg))
			r.Patch("/{orderId}/items/{itemId}/status", controllers.AdminUpdateItemStatus(deps.Orders, logg))
			r.Post("/{orderId}/items/{itemId}/return/resolve", controllers.AdminResolveReturn(deps.Orders, logg))
		})

		r.Post("/wallet/adjust", controllers.AdminWalletAdjust(deps.Wallet, logg))
		r.Patch("/users/{userId}/block", controllers.AdminBlockUser(deps.Auth, logg))
	})

	return r
}
