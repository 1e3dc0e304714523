package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"parkeo/internal/api"
	"parkeo/internal/auth"
	"parkeo/internal/clock"
	"parkeo/internal/gateway"
	"parkeo/internal/repository"
	"parkeo/internal/service"
)

const staleCheckoutAge = 24 * time.Hour

func main() {
	godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	reservationRepo := repository.NewReservationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	userDirectory := repository.NewUserDirectory(db)
	adminAuthRepo := repository.NewAdminAuthRepository(db)
	jobRepo := repository.NewJobRepository(db)

	gateways := map[string]gateway.Gateway{
		"maya": gateway.NewMayaClient(
			os.Getenv("MAYA_BASE_URL"),
			os.Getenv("MAYA_PUBLIC_KEY"),
			os.Getenv("MAYA_SECRET_KEY"),
		),
	}
	if stripeKey := os.Getenv("STRIPE_SECRET_KEY"); stripeKey != "" {
		gateways["stripe"] = gateway.NewStripeGateway(stripeKey)
	}

	clk := clock.Real{}
	sender := service.NewSenderService(userDirectory)

	reservationSvc := service.NewReservationService(
		reservationRepo, paymentRepo, slotRepo, spaceRepo, vehicleRepo,
		gateways, sender, clk, os.Getenv("FRONTEND_URL"),
	)
	paymentSvc := service.NewPaymentService(
		paymentRepo, reservationRepo, spaceRepo, settlementRepo, gateways, sender, clk,
	)
	adminSvc := service.NewAdminService(reservationRepo, paymentRepo, vehicleRepo, spaceRepo)
	adminAuthSvc := service.NewAdminAuthService(adminAuthRepo)
	jobSvc := service.NewJobService(jobRepo, reservationRepo, paymentRepo, spaceRepo, slotRepo, clk)

	userHandler := api.NewUserReservationHandler(reservationSvc)
	paymentHandler := api.NewPaymentHandler(paymentSvc)
	adminHandler := api.NewAdminHandler(adminSvc, reservationSvc)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuthSvc)

	r := mux.NewRouter()

	// Operator login is public. Registered before the protected /admin
	// subrouter so it wins the prefix match.
	adminAuth := r.PathPrefix("/admin/auth").Subrouter()
	adminAuth.HandleFunc("/login", adminAuthHandler.Login).Methods("POST")
	adminAuth.HandleFunc("/register", adminAuthHandler.Register).Methods("POST")

	// Driver endpoints (driver token required)
	user := r.PathPrefix("/api").Subrouter()
	user.Use(auth.RequireDriver)
	user.HandleFunc("/reservations/availability", userHandler.CheckAvailability).Methods("POST")
	user.HandleFunc("/reservations", userHandler.CreateReservation).Methods("POST")
	user.HandleFunc("/reservations/history", userHandler.History).Methods("GET")
	user.HandleFunc("/reservations/{id}/cancel", userHandler.CancelReservation).Methods("POST")
	user.HandleFunc("/payments/reconcile", paymentHandler.Reconcile).Methods("POST")
	user.HandleFunc("/spaces", userHandler.ListSpaces).Methods("GET")
	user.HandleFunc("/spaces/{id}/slots", userHandler.SlotsBySpace).Methods("GET")

	// Admin endpoints (operator token required)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAdmin)
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/reservations/{id}/complete", adminHandler.CompleteReservation).Methods("POST")
	admin.HandleFunc("/payments", adminHandler.ListPayments).Methods("GET")

	c := cron.New()
	c.AddFunc("@hourly", func() {
		if err := jobSvc.ExpireStaleCreated(staleCheckoutAge); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	})
	c.AddFunc("@hourly", func() {
		if err := jobSvc.CompleteFinishedReservations(); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	})
	c.Start()
	defer c.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{os.Getenv("FRONTEND_URL")}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, corsHandler(r))))
}
