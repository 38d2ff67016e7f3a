package http

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries everything the router serves.
type RouterConfig struct {
	GraphQL   *GraphQLHandler
	Images    *ImageHandler
	WebSocket http.Handler
	Users     UserLookup
	CORS      *CORSConfig
	ClientID  string
	Logger    hclog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()

	mw := NewMiddleware(cfg.Logger, cfg.Users, cfg.CORS)

	router.Use(mw.LoggingMiddleware)
	router.Use(mw.CORSMiddleware)
	router.Use(mw.AuthMiddleware)

	// websocket upgrades bypass compression
	router.Handle("/graphql/ws", cfg.WebSocket).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(handlers.CompressHandler)

	api.Handle("/graphql", cfg.GraphQL).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	api.HandleFunc("/playground", Playground("/graphql", "/graphql/ws")).Methods(http.MethodGet)
	api.HandleFunc("/auth/github", GithubSignIn(cfg.ClientID)).Methods(http.MethodGet)

	api.HandleFunc("/photos/{id}/image", cfg.Images.Upload).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/img/photos/{file}", cfg.Images.Get).Methods(http.MethodGet)

	api.HandleFunc("/health", Health).Methods(http.MethodGet)
	api.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api.HandleFunc("/swagger.yaml", serveSwagger).Methods(http.MethodGet)
	api.Handle("/docs", docsHandler()).Methods(http.MethodGet)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(cfg.Logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(router)
}
