package main

import (
	"log"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/eliu/babble/internal/auth"
	"github.com/eliu/babble/internal/config"
	"github.com/eliu/babble/internal/handlers"
	"github.com/eliu/babble/internal/middleware"
	"github.com/eliu/babble/internal/store/sqlstore"
	"github.com/eliu/babble/internal/ws"
)

const tokenTTL = 24 * time.Hour

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := config.FromEnv()

	st, err := sqlstore.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, tokenTTL)
	hub := ws.NewHub(st, tokens, cfg.AllowedOrigins)

	authHandler := &handlers.AuthHandler{Store: st, Tokens: tokens}
	messageHandler := &handlers.MessageHandler{Store: st}

	requireAuth := middleware.AuthMiddleware(tokens)

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/login", authHandler.Login).Methods("POST")
	api.Handle("/me", requireAuth(http.HandlerFunc(authHandler.Me))).Methods("GET")
	api.Handle("/messages", requireAuth(http.HandlerFunc(messageHandler.GetMessages))).Methods("GET")

	r.HandleFunc("/ws", hub.ServeWS)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
	}).Methods("GET")

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		gorillahandlers.AllowCredentials(),
	)

	log.Println("Starting server on", cfg.Port)
	log.Fatal(http.ListenAndServe(cfg.Port, cors(r)))
}
