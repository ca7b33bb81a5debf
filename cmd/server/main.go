package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sillage/backend/internal/cache"
	"github.com/sillage/backend/internal/config"
	"github.com/sillage/backend/internal/handlers"
	appMiddleware "github.com/sillage/backend/internal/middleware"
	"github.com/sillage/backend/internal/services"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Firebase Auth (server-side verification of ID tokens). When it is not
	// configured the protected routes fall back to HS256 JWTs, which is what
	// local development uses.
	authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	})
	if err != nil {
		log.Printf("Warning: Firebase Auth unavailable, using JWT auth: %v", err)
	}
	requireAuth := appMiddleware.JWTAuth(cfg.JWTSecret)
	if authClient != nil {
		requireAuth = appMiddleware.FirebaseAuth(authClient)
	}

	// SMS delivery for phone verification.
	var sms services.SMSSender
	if cfg.SMSGatewayURL != "" {
		sms = services.NewSMSGateway(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey, cfg.SMSSenderID)
	} else {
		log.Printf("Warning: SMS_GATEWAY_URL not set, verification codes are logged instead")
		sms = services.LogSMSSender{}
	}

	// Data services: Mongo when configured, JSON-backed local services
	// otherwise.
	var (
		listingService services.ListingService
		profileService services.ProfileService
		otpService     services.OTPService
		accountService services.AccountService
	)
	if cfg.MongoURI != "" {
		mongoListings, err := services.NewMongoListingService(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect listing store: %v", err)
		}
		mongoProfiles, err := services.NewMongoProfileService(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect profile store: %v", err)
		}
		mongoOTP, err := services.NewMongoOTPService(ctx, cfg.MongoURI, cfg.MongoDB, sms, mongoProfiles)
		if err != nil {
			log.Fatalf("Failed to connect verification store: %v", err)
		}
		mongoAccounts, err := services.NewMongoAccountService(ctx, cfg.MongoURI, cfg.MongoDB, authClient)
		if err != nil {
			log.Fatalf("Failed to connect account store: %v", err)
		}
		listingService = mongoListings
		profileService = mongoProfiles
		otpService = mongoOTP
		accountService = mongoAccounts
	} else {
		log.Printf("MONGO_URI not set, using local JSON stores in %s", cfg.DataDir)
		localListings := services.NewLocalListingService(cfg.DataDir)
		localProfiles := services.NewLocalProfileService(cfg.DataDir)
		listingService = localListings
		profileService = localProfiles
		otpService = services.NewLocalOTPService(sms, localProfiles)
		accountService = services.NewLocalAccountService(localListings, localProfiles)
	}

	// Image uploads: the Firebase bucket when configured, local disk
	// otherwise.
	var uploader services.ImageUploader
	if cfg.StorageBucket != "" {
		storageService, err := services.NewStorageService(ctx, cfg.StorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize storage bucket: %v", err)
		}
		uploader = storageService
	} else {
		log.Printf("FIREBASE_STORAGE_BUCKET not set, storing uploads in %s", cfg.UploadDir)
		uploader = services.NewLocalImageService(cfg.UploadDir)
	}

	// One cache per process; the mutator and every listing read share it.
	listingCache := cache.New()

	listingHandler := handlers.NewListingHandler(listingService, profileService, listingCache)
	profileHandler := handlers.NewProfileHandler(profileService)
	uploadHandler := handlers.NewUploadHandler(uploader, cfg.MaxUploadSizeMB)
	supportHandler := handlers.NewSupportHandler(
		services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SupportFromEmail, cfg.SupportToEmail),
		services.NewRecaptchaVerifier(cfg.RecaptchaSecret),
	)
	contactHandler := handlers.NewContactHandler(otpService)
	accountHandler := handlers.NewAccountHandler(accountService, listingCache)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/listings/{listingId}", listingHandler.GetListing)
		r.Post("/listings/{listingId}/contact-click", listingHandler.ContactClick)
		r.Get("/sellers/{username}", profileHandler.GetPublicProfile)
		r.Get("/sellers/{username}/listings", listingHandler.ListSellerListings)
		r.Post("/help", supportHandler.SubmitTicket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/listings", func(r chi.Router) {
				r.Get("/", listingHandler.ListMyListings)
				r.Post("/", listingHandler.CreateListing)
				r.Put("/{listingId}", listingHandler.UpdateListing)
				r.Delete("/{listingId}", listingHandler.DeleteListing)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.GetProfile)
				r.Put("/", profileHandler.UpsertProfile)
			})

			r.Route("/contact", func(r chi.Router) {
				r.Post("/send-otp", contactHandler.SendOTP)
				r.Post("/confirm-otp", contactHandler.ConfirmOTP)
			})

			r.Post("/upload", uploadHandler.UploadImages)
			r.Post("/account/delete", accountHandler.DeleteAccount)
		})
	})

	// Serve locally uploaded files
	workDir, _ := os.Getwd()
	filesDir := http.Dir(workDir + "/" + cfg.UploadDir)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(filesDir)))

	log.Printf("Sillage API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
