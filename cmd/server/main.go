package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mivanic/parley/internal/config"
	"github.com/mivanic/parley/internal/database"
	"github.com/mivanic/parley/internal/presence"
	postgresrepo "github.com/mivanic/parley/internal/repository/postgres"
	"github.com/mivanic/parley/internal/service"
	"github.com/mivanic/parley/internal/storage"
	"github.com/mivanic/parley/internal/transport/http/handlers"
	"github.com/mivanic/parley/internal/transport/http/middleware"
	"github.com/mivanic/parley/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Blob storage
	store, err := storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadMB*1024*1024)
	if err != nil {
		log.Fatal(err)
	}

	// Presence
	tracker := presence.NewTracker(cfg.RedisURL)
	defer tracker.Close()

	// Repositories
	profileRepo := postgresrepo.NewProfileRepo(pool)
	conversationRepo := postgresrepo.NewConversationRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Services
	authService := service.NewAuthService(profileRepo, cfg.JWTSecret)
	directoryService := service.NewDirectoryService(profileRepo)
	registryService := service.NewRegistryService(conversationRepo, directoryService)
	composerService := service.NewComposerService(conversationRepo, directoryService)
	messageService := service.NewMessageService(messageRepo, conversationRepo, directoryService)

	// Realtime hub
	hub := ws.NewHub(tracker)
	go hub.Run()

	notifier := ws.NewHubNotifier(hub)
	registryService.SetNotifier(notifier)
	composerService.SetNotifier(notifier)
	messageService.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(directoryService, composerService, tracker)
	conversationHandler := handlers.NewConversationHandler(registryService, composerService)
	messageHandler := handlers.NewMessageHandler(messageService)
	uploadHandler := handlers.NewUploadHandler(store)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// API routes
	api := http.NewServeMux()

	// Public
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	api.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	api.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	api.HandleFunc("GET /media/{path...}", uploadHandler.Media)

	// Protected - Profiles
	api.Handle("GET /api/v1/profiles", auth(http.HandlerFunc(profileHandler.List)))
	api.Handle("GET /api/v1/profiles/candidates", auth(http.HandlerFunc(profileHandler.Candidates)))
	api.Handle("GET /api/v1/profiles/{id}", auth(http.HandlerFunc(profileHandler.Get)))

	// Protected - Conversations
	api.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(conversationHandler.List)))
	api.Handle("POST /api/v1/conversations/direct", auth(http.HandlerFunc(conversationHandler.CreateDirect)))
	api.Handle("POST /api/v1/conversations/group", auth(http.HandlerFunc(conversationHandler.CreateGroup)))
	api.Handle("DELETE /api/v1/conversations", auth(http.HandlerFunc(conversationHandler.BulkDelete)))

	// Protected - Messages
	api.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(messageHandler.History)))
	api.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(messageHandler.Send)))

	// Protected - Uploads
	api.Handle("POST /api/v1/uploads", auth(http.HandlerFunc(uploadHandler.Upload)))

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// The websocket upgrade needs the raw connection, so /ws and
	// /metrics sit outside the wrapped API chain.
	root := http.NewServeMux()
	root.Handle("/ws", ws.ServeWS(hub, cfg.JWTSecret))
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", middleware.CORS(middleware.Metrics(rl.Middleware(api))))

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, root))
}
