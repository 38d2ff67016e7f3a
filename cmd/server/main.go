package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/kahvecikaan/photo-api/internal/events"
	"github.com/kahvecikaan/photo-api/internal/files"
	"github.com/kahvecikaan/photo-api/internal/graph"
	"github.com/kahvecikaan/photo-api/internal/repository"
	"github.com/kahvecikaan/photo-api/internal/service"
	httpTransport "github.com/kahvecikaan/photo-api/internal/transport/http"
	websocketTransport "github.com/kahvecikaan/photo-api/internal/transport/websocket"
	"github.com/nicholasjackson/env"
)

// Environment variables
var (
	bindAddress = env.String("BIND_ADDRESS", false,
		":4000", "Bind address for the server")
	logLevel = env.String("LOG_LEVEL", false,
		"debug", "Log output level for the server [trace, debug, info, warn, error]")
	mongoURL = env.String("MONGO_URL", false,
		"", "MongoDB connection string, in-memory storage when empty")
	mongoDatabase = env.String("MONGO_DATABASE", false,
		"photoshare", "MongoDB database name")
	redisAddress = env.String("REDIS_ADDRESS", false,
		"", "Redis address for relaying events between instances, disabled when empty")
	clientID = env.String("CLIENT_ID", false,
		"", "GitHub OAuth app client ID")
	clientSecret = env.String("CLIENT_SECRET", false,
		"", "GitHub OAuth app client secret")
	corsOrigins = env.String("CORS_ORIGINS", false,
		"http://localhost:3000", "Comma separated origins allowed by CORS, * for any")
	photoPath = env.String("PHOTO_PATH", false,
		"./assets/photos", "Directory uploaded photo images are stored in")
	maxPhotoSize = env.Int("MAX_PHOTO_SIZE", false,
		5*1024*1024, "Maximum size of an uploaded photo image in bytes")
	subscriberBuffer = env.Int("SUBSCRIBER_BUFFER", false,
		events.DefaultBufferSize, "Events buffered per subscription before the oldest is dropped")
	maxSubscribers = env.Int("MAX_SUBSCRIBERS_PER_TOPIC", false,
		0, "Maximum subscriptions per topic, 0 for no limit")
	shutdownTimeout = env.Int("SHUTDOWN_TIMEOUT", false,
		30, "Seconds to wait for in-flight requests on shutdown")
)

func main() {
	// a missing .env file is fine, the environment may already be set
	_ = godotenv.Load()
	env.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "photo-api",
		Level: hclog.LevelFromString(*logLevel),
	})

	// Create a standard logger for the HTTP server
	standardLogger := logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The event bus is shared by the services, the resolvers and the relay
	eventBus := events.NewEventBus(logger.Named("event-bus"),
		events.WithBufferSize(*subscriberBuffer),
		events.WithMaxSubscribersPerTopic(*maxSubscribers),
	)

	var publisher events.Publisher = eventBus
	if *redisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddress})
		defer rdb.Close()

		relay := events.NewRedisRelay(rdb, eventBus, logger.Named("redis-relay"))
		publisher = relay

		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("Redis relay stopped", "error", err)
			}
		}()
	}

	users, photos, tags, closeStore := openRepositories(ctx, logger)
	defer closeStore()

	photoService := service.NewPhotoService(photos, users, tags, publisher, logger.Named("photo-service"))
	userService := service.NewUserService(
		users,
		service.NewGithubClient("", ""),
		service.NewRandomUserSource(""),
		service.GithubApp{ClientID: *clientID, ClientSecret: *clientSecret},
		publisher,
		logger.Named("user-service"),
	)

	resolver := graph.NewResolver(photoService, userService, eventBus, logger.Named("graphql"))
	executor, err := graph.NewExecutor(resolver, logger.Named("graphql"))
	if err != nil {
		logger.Error("Unable to build GraphQL schema", "error", err)
		os.Exit(1)
	}

	store, err := files.NewLocal(*photoPath, int64(*maxPhotoSize))
	if err != nil {
		logger.Error("Unable to create photo storage", "path", *photoPath, "error", err)
		os.Exit(1)
	}

	cors := httpTransport.DefaultCORSConfig()
	cors.AllowedOrigins = strings.Split(*corsOrigins, ",")

	router := httpTransport.NewRouter(httpTransport.RouterConfig{
		GraphQL:   httpTransport.NewGraphQLHandler(executor, logger.Named("http-graphql")),
		Images:    httpTransport.NewImageHandler(photoService, store, logger.Named("http-images")),
		WebSocket: websocketTransport.NewHandler(logger.Named("websocket-handler"), executor, userService),
		Users:     userService,
		CORS:      cors,
		ClientID:  *clientID,
		Logger:    logger.Named("http"),
	})

	server := &http.Server{
		Addr:         *bindAddress,
		Handler:      router,
		ErrorLog:     standardLogger,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "bind_address", *bindAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Error starting server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(*shutdownTimeout)*time.Second)
	defer shutdownCancel()

	// ending every subscription completes open websocket operations
	if err := eventBus.Close(shutdownCtx); err != nil {
		logger.Error("Error closing event bus", "error", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server", "error", err)
	}
}

// openRepositories connects to MongoDB when MONGO_URL is set and falls
// back to in-memory storage otherwise.
func openRepositories(ctx context.Context, logger hclog.Logger) (
	repository.UserRepository,
	repository.PhotoRepository,
	repository.TagRepository,
	func(),
) {
	if *mongoURL == "" {
		logger.Warn("MONGO_URL not set, using in-memory storage")
		return repository.NewMemoryUserRepository(),
			repository.NewMemoryPhotoRepository(),
			repository.NewMemoryTagRepository(),
			func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := repository.ConnectMongo(connectCtx, *mongoURL, *mongoDatabase, logger.Named("mongo"))
	if err != nil {
		logger.Error("Mongo DB host not reachable", "error", err)
		os.Exit(1)
	}

	return store.Users(), store.Photos(), store.Tags(), func() {
		if err := store.Disconnect(context.Background()); err != nil {
			logger.Error("Error disconnecting from MongoDB", "error", err)
		}
	}
}
