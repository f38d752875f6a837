package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sdlvbooker/internal/api"
	"sdlvbooker/internal/auth"
	dbschema "sdlvbooker/internal/db"
	"sdlvbooker/internal/doinsport"
	"sdlvbooker/internal/repository"
	"sdlvbooker/internal/service"
)

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
	if err := dbschema.InitSchema(db); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	keySource := os.Getenv("CREDENTIALS_KEY")
	if keySource == "" {
		keySource = dbURL // better than plaintext, still replaceable
	}
	settingsRepo, err := repository.NewSettingsRepository(db, keySource)
	if err != nil {
		log.Fatalf("Failed to init settings repository: %v", err)
	}
	ruleRepo := repository.NewRuleRepository(db)
	logRepo := repository.NewLogRepository(db)

	clubID := os.Getenv("CLUB_ID")
	if clubID == "" {
		log.Fatal("CLUB_ID not set")
	}
	provider := doinsport.New(os.Getenv("DOINSPORT_BASE_URL"), clubID, func() (string, string, error) {
		creds, err := settingsRepo.GetCredentials()
		if err != nil {
			return "", "", err
		}
		if creds == nil {
			return "", "", fmt.Errorf("no provider credentials configured")
		}
		return creds.Email, creds.Password, nil
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	confirmURL := os.Getenv("STRIPE_CONFIRM_URL")
	if confirmURL == "" {
		confirmURL = fmt.Sprintf("http://localhost:%s/stripe-confirm.html", port)
	}
	bridge := service.NewStripeService(
		os.Getenv("STRIPE_PK"),
		os.Getenv("STRIPE_ACCOUNT"),
		os.Getenv("STRIPE_SOURCE_ID"),
		confirmURL,
	)

	notifier := service.NewNotifyService(settingsRepo)
	bookingSvc := service.NewBookingService(provider, bridge, logRepo, notifier)
	scheduler := service.NewSchedulerService(ruleRepo, logRepo, settingsRepo, bookingSvc)

	ruleHandler := api.NewRuleHandler(ruleRepo, settingsRepo, bookingSvc)
	bookingHandler := api.NewBookingHandler(bookingSvc, logRepo)
	settingsHandler := api.NewSettingsHandler(settingsRepo, notifier, provider)
	dashboardHandler := api.NewDashboardHandler(ruleRepo, logRepo, settingsRepo)

	r := mux.NewRouter()

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.APITokenMiddleware(os.Getenv("API_TOKEN")))

	apiRouter.HandleFunc("/dashboard", dashboardHandler.Dashboard).Methods("GET")
	apiRouter.HandleFunc("/time", dashboardHandler.Time).Methods("GET")

	apiRouter.HandleFunc("/rules", ruleHandler.ListRules).Methods("GET")
	apiRouter.HandleFunc("/rules", ruleHandler.CreateRule).Methods("POST")
	apiRouter.HandleFunc("/rules/{id}", ruleHandler.UpdateRule).Methods("PUT")
	apiRouter.HandleFunc("/rules/{id}", ruleHandler.DeleteRule).Methods("DELETE")
	apiRouter.HandleFunc("/book-now", ruleHandler.BookNow).Methods("POST")

	apiRouter.HandleFunc("/slots", bookingHandler.SearchSlots).Methods("GET")
	apiRouter.HandleFunc("/book-manual", bookingHandler.BookManual).Methods("POST")
	apiRouter.HandleFunc("/bookings", bookingHandler.ListBookings).Methods("GET")
	apiRouter.HandleFunc("/bookings/{id}", bookingHandler.CancelBooking).Methods("DELETE")
	apiRouter.HandleFunc("/logs", bookingHandler.ListLogs).Methods("GET")
	apiRouter.HandleFunc("/logs", bookingHandler.DeleteLogs).Methods("DELETE")

	apiRouter.HandleFunc("/credentials", settingsHandler.UpdateCredentials).Methods("PUT")
	apiRouter.HandleFunc("/credentials/status", settingsHandler.CredentialsStatus).Methods("GET")
	apiRouter.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods("PUT")
	apiRouter.HandleFunc("/telegram/test", settingsHandler.TelegramTest).Methods("POST")

	// The dashboard frontend and the Stripe confirmation page.
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("public")))

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handlers.LoggingHandler(os.Stdout, cors(r)),
	}

	scheduler.Start()

	go func() {
		log.Printf("Server running on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
