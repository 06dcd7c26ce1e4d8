package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/foliolab/folio-backend/internal/api/middleware"
	"github.com/foliolab/folio-backend/internal/events"
	"github.com/foliolab/folio-backend/internal/services"
	"github.com/foliolab/folio-backend/internal/store"
)

// NewRouter wires all API routes over the given store.
func NewRouter(log zerolog.Logger, st store.Store, bus *events.Bus) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RequestLog(log))
	router.Use(middleware.Recover)

	reconciler := services.NewReconciler(st, bus)
	triage := services.NewTriage(st, bus)

	collections := NewCollectionHandler(reconciler)
	messages := NewMessageHandler(triage)
	health := NewHealthHandler()

	// Collection sync endpoints
	router.HandleFunc("/api/collections/{collection}", collections.ListCollection).Methods(http.MethodGet)
	router.HandleFunc("/api/collections/{collection}", collections.SaveCollection).Methods(http.MethodPut)
	router.HandleFunc("/api/collections/{collection}/records/{id:[0-9]+}", collections.DeleteRecord).Methods(http.MethodDelete)

	// Contact form and message triage endpoints
	router.HandleFunc("/api/contact", messages.SubmitMessage).Methods(http.MethodPost)
	router.HandleFunc("/api/messages", messages.ListMessages).Methods(http.MethodGet)
	router.HandleFunc("/api/messages/bulk", messages.BulkMessages).Methods(http.MethodPost)
	router.HandleFunc("/api/messages/{id:[0-9]+}", messages.DeleteMessage).Methods(http.MethodDelete)
	router.HandleFunc("/api/messages/{id:[0-9]+}/open", messages.OpenMessage).Methods(http.MethodPost)
	router.HandleFunc("/api/messages/{id:[0-9]+}/transition", messages.TransitionMessage).Methods(http.MethodPost)
	router.HandleFunc("/api/messages/{id:[0-9]+}/unread", messages.MarkUnread).Methods(http.MethodPost)
	router.HandleFunc("/api/messages/{id:[0-9]+}/priority", messages.SetPriority).Methods(http.MethodPatch)

	// Health endpoint
	router.HandleFunc("/api/health", health.CheckHealth).Methods(http.MethodGet)

	return router
}
