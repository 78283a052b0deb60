package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/campuskart-backend/internal/assets"
	"github.com/vasiliy-maslov/campuskart-backend/internal/handler"
	"github.com/vasiliy-maslov/campuskart-backend/internal/item"
	"github.com/vasiliy-maslov/campuskart-backend/internal/order"
	"github.com/vasiliy-maslov/campuskart-backend/internal/user"
)

const uploadsPrefix = "/static/uploads"

// NewRouter wires repositories, services, and handlers onto one chi
// router.
func NewRouter(pool *pgxpool.Pool, assetStore *assets.Store) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	userSvc := user.NewService(user.NewRepository(pool))
	itemSvc := item.NewService(item.NewRepository(pool))
	orderSvc := order.NewService(order.NewStore(pool))

	r.Route("/api", func(api chi.Router) {
		handler.NewUserHandler(userSvc).RegisterRoutes(api)
		handler.NewItemHandler(itemSvc).RegisterRoutes(api)
		handler.NewOrderHandler(orderSvc).RegisterRoutes(api)
		handler.NewAdminHandler(orderSvc).RegisterRoutes(api)
		handler.NewUploadHandler(assetStore).RegisterRoutes(api)
	})

	fileServer := http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(assetStore.Root())))
	r.Get(uploadsPrefix+"/*", fileServer.ServeHTTP)

	return r
}
