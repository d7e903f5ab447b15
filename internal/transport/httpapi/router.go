package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/handler"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/middleware"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger           *logger.Logger
	AllowedOrigins   []string
	AuthHandler      *handler.AuthHandler
	BuyerHandler     *handler.BuyerHandler
	TicketHandler    *handler.TicketHandler
	VisaHandler      *handler.VisaHandler
	WhatsAppHandler  *handler.WhatsAppHandler
	BroadcastHandler *handler.BroadcastHandler
	SystemHandler    *handler.SystemHandler
	ProxyHandler     *handler.ProxyHandler
	ChangesHandler   *handler.ChangesHandler
	HealthHandler    *handler.HealthHandler
	JWTMiddleware    func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit()) // Rate limiting: 100 req/s with burst of 20

	// Health check endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public - no authentication required)
		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		// Protected routes (require JWT authentication)
		if cfg.JWTMiddleware == nil {
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(cfg.JWTMiddleware)

			if cfg.AuthHandler != nil {
				r.Get("/auth/me", cfg.AuthHandler.Me)
			}

			r.Post("/notes/normalize", handler.NormalizeNotes)

			if h := cfg.BuyerHandler; h != nil {
				r.Route("/buyers", func(r chi.Router) {
					r.Post("/", h.CreateBuyer)
					r.Get("/", h.ListBuyers)
					r.Get("/{id}", h.GetBuyer)
					r.Put("/{id}", h.UpdateBuyer)
					r.Delete("/{id}", h.DeleteBuyer)
					r.Get("/{id}/statement", h.GetStatement)
					r.Get("/{id}/statement/stream", h.StreamStatement)
					r.Get("/{id}/statement/export.csv", h.ExportStatementCSV)
					r.Get("/{id}/statement/print", h.PrintStatement)
				})
			}

			if h := cfg.TicketHandler; h != nil {
				r.Route("/tickets", func(r chi.Router) {
					r.Post("/", h.CreateTicket)
					r.Get("/", h.ListTickets)
					r.Get("/{id}", h.GetTicket)
					r.Put("/{id}", h.UpdateTicket)
					r.Delete("/{id}", h.DeleteTicket)
					r.Post("/{id}/audit", h.AuditTicket)
				})
			}

			if h := cfg.VisaHandler; h != nil {
				r.Route("/visas", func(r chi.Router) {
					r.Post("/", h.CreateVisa)
					r.Get("/", h.ListVisas)
					r.Get("/{id}", h.GetVisa)
					r.Put("/{id}", h.UpdateVisa)
					r.Delete("/{id}", h.DeleteVisa)
					r.Put("/{id}/status", h.ChangeVisaStatus)
				})
			}

			if h := cfg.WhatsAppHandler; h != nil {
				r.Route("/whatsapp/accounts", func(r chi.Router) {
					r.Post("/", h.CreateAccount)
					r.Get("/", h.ListAccounts)
					// registered before /{id} so "default" is not parsed as an id
					r.Get("/default", h.GetDefaultAccount)
					r.Get("/{id}", h.GetAccount)
					r.Put("/{id}", h.UpdateAccount)
					r.Delete("/{id}", h.DeleteAccount)
					r.Post("/{id}/default", h.SetDefaultAccount)
					r.Post("/{id}/profile-pic", h.ProfilePicture)
					r.Post("/{id}/media", h.UploadMedia)
					r.Post("/{id}/documents", h.SendDocument)
				})
			}

			if h := cfg.BroadcastHandler; h != nil {
				r.Route("/broadcasts", func(r chi.Router) {
					r.Post("/", h.StartBroadcast)
					r.Get("/{id}", h.GetBroadcast)
					r.Post("/{id}/pause", h.PauseBroadcast)
					r.Post("/{id}/resume", h.ResumeBroadcast)
					r.Post("/{id}/stop", h.StopBroadcast)
				})
			}

			if h := cfg.SystemHandler; h != nil {
				r.Get("/system/users", h.ListUsers)
				r.Get("/system/users/export.csv", h.ExportUsersCSV)
			}

			if h := cfg.ProxyHandler; h != nil {
				r.Post("/proxy", h.Forward)
			}

			if h := cfg.ChangesHandler; h != nil {
				r.Get("/changes/{collection}", h.StreamChanges)
			}
		})
	})

	return r
}
