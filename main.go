package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/civiceye/civiceyebackend/config"
	"github.com/civiceye/civiceyebackend/database"
	"github.com/civiceye/civiceyebackend/detection"
	"github.com/civiceye/civiceyebackend/handlers"
	"github.com/civiceye/civiceyebackend/models"
	"github.com/civiceye/civiceyebackend/repository"
	"github.com/civiceye/civiceyebackend/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	for _, p := range cfg.StorageDirs() {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying sql.DB: %v", err)
	}

	store, err := detection.NewLocalStorage(cfg.StoragePath,
		map[string]string{
			models.CategoryPothole: cfg.PotholeOriginalPath,
			models.CategoryWaste:   cfg.WasteOriginalPath,
		},
		map[string]string{
			models.CategoryPothole: cfg.PotholeDetectedPath,
			models.CategoryWaste:   cfg.WasteDetectedPath,
		},
	)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize detection storage: %v", err)
	}

	// detectors are loaded once and shared read-only for the process
	// lifetime; a model that fails to load stays disabled and reports no
	// detections instead of taking the server down
	potholeDetector := detection.NewDNNDetector("pothole", cfg.PotholeModelPath, cfg.PotholeConfigPath,
		cfg.PotholeClassNames, cfg.DetectorInputSize, cfg.ConfidenceThreshold)
	defer potholeDetector.Close()
	wasteDetector := detection.NewDNNDetector("waste", cfg.WasteModelPath, cfg.WasteConfigPath,
		nil, cfg.DetectorInputSize, cfg.ConfidenceThreshold)
	defer wasteDetector.Close()

	pipeline := detection.NewPipeline(potholeDetector, wasteDetector, store)

	userRepo := repository.NewGormUserRepository(db)
	detectionRepo := repository.NewGormDetectionRepository(db, store)
	detectionService := services.NewDetectionService(pipeline, detectionRepo, store)

	authHandler := handlers.NewAuthHandler(userRepo, cfg)
	detectionHandler := &handlers.DetectionHandler{
		Service: detectionService,
		Repo:    detectionRepo,
		StatsDB: sqlDB,
	}

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing detection imagery under: %s", cfg.StoragePath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	authRequired := func(next http.Handler) http.Handler {
		return handlers.AuthMiddleware(userRepo, []byte(cfg.JWTSecret), next)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(authRequired)
			r.Get("/profile", authHandler.Profile)
		})
	})

	r.Route("/api/detections", func(r chi.Router) {
		r.Use(authRequired)
		r.Post("/", detectionHandler.Create)
		r.Get("/my", detectionHandler.ListMine)
		r.Get("/my/summary", detectionHandler.Summary)
		r.Get("/my/{key}", detectionHandler.GetMine)
		r.Put("/my/{id}", detectionHandler.UpdateMine)
		r.Delete("/my/{key}", detectionHandler.DeleteMine)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
