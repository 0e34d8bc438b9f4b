package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"postboard/app/controllers"
	"postboard/app/events"
	"postboard/app/metrics"
	"postboard/app/middleware"
	"postboard/app/repositories"
	"postboard/app/services"
	"postboard/logger"
)

// Dependencies are the shared components the router is built from. Only
// Store is required.
type Dependencies struct {
	Store       repositories.PostStore
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Hub         *events.Hub
	RateLimiter *middleware.RateLimiter
	StaticDir   string
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Dependencies) *mux.Router {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	var publisher services.Publisher
	if deps.Hub != nil {
		publisher = deps.Hub
	}

	postService := services.NewPostService(deps.Store, publisher, log, deps.Metrics)
	commentService := services.NewCommentService(deps.Store, publisher, log, deps.Metrics)

	postController := controllers.NewPostController(postService, log)
	commentController := controllers.NewCommentController(commentService, log)
	healthController := controllers.NewHealthController(postService)
	staticController := controllers.NewStaticController(deps.StaticDir, log)

	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recoverer(log))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}
	router.Use(middleware.ContentTypeJSON)

	limit := func(h http.HandlerFunc) http.Handler {
		if deps.RateLimiter == nil {
			return h
		}
		return deps.RateLimiter.Middleware(h)
	}

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods("GET", "HEAD")
	posts.Handle("", limit(postController.Create)).Methods("POST")
	posts.Handle("/{id}/comments", limit(commentController.Create)).Methods("POST")

	if deps.Hub != nil {
		api.Handle("/stream", deps.Hub).Methods("GET")
	}

	router.HandleFunc("/health", healthController.Health).Methods("GET", "HEAD")
	router.HandleFunc("/health/detailed", healthController.Detailed).Methods("GET", "HEAD")
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	// Front end, must stay last
	router.PathPrefix("/").Handler(staticController).Methods("GET", "HEAD")

	return router
}
