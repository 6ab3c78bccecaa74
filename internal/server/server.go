package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bookcart/apiserver/config"
	"github.com/bookcart/apiserver/internal/db"
	"github.com/bookcart/apiserver/internal/events"
	"github.com/bookcart/apiserver/internal/handlers"
	"github.com/bookcart/apiserver/internal/password"
	"github.com/bookcart/apiserver/internal/services"
	"github.com/bookcart/apiserver/internal/storage"
	"github.com/bookcart/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  events.Publisher
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	bookRepo := store.NewBookRepository(dbConn)
	cartRepo := store.NewCartRepository(dbConn)
	orderRepo := store.NewOrderRepository(dbConn)

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	receipts, err := newReceiptStore(ctx, cfg)
	if err != nil {
		if publisher != nil {
			_ = publisher.Close()
		}
		_ = dbConn.Close()
		return nil, err
	}

	// A typed nil must not reach the service as a non-nil interface.
	var receiptStore services.ReceiptStore
	if receipts != nil {
		receiptStore = receipts
	}

	userService := services.NewUserService(userRepo, password.NewCodec())
	cartService := services.NewCartService(cartRepo, bookRepo)
	orderService := services.NewOrderService(orderRepo, publisher, receiptStore)

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		if publisher != nil {
			_ = publisher.Close()
		}
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
		r.Route("/user", func(r chi.Router) {
			handlers.UserRouter(r, userService, cartService)
		})
		r.Route("/shoppingcart", func(r chi.Router) {
			handlers.CartRouter(r, cartService, authMiddleware)
		})
		r.Route("/checkout", func(r chi.Router) {
			handlers.CheckoutRouter(r, orderService, authMiddleware)
		})
		r.Route("/order", func(r chi.Router) {
			handlers.OrderRouter(r, orderService, authMiddleware)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// newPublisher builds the configured order-event publisher; nil when the
// feature is unconfigured.
func newPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case "":
		return nil, nil
	case config.EventsBackendPubSub:
		return events.NewPubSubPublisher(ctx, cfg.PubSub)
	case config.EventsBackendRabbitMQ:
		return events.NewRabbitMQPublisher(cfg.RabbitMQ)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}

// newReceiptStore builds the configured receipt archive; nil when the
// feature is unconfigured.
func newReceiptStore(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.ReceiptsBackend {
	case "":
		return nil, nil
	case config.ReceiptsBackendMinio:
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.ReceiptsBackendGCS:
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown receipts backend %q", cfg.ReceiptsBackend)
	}

	archive := storage.NewStorage(backend)
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}
