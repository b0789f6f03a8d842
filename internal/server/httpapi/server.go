// Package httpapi exposes the account, session and content services over a
// JSON HTTP API routed with chi.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/stavros/internal/logging"
	"github.com/dmitrijs2005/stavros/internal/server/httpapi/ratelimit"
	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type AccountService interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.User, error)
	ResendVerification(ctx context.Context, email string) error
	Verify(ctx context.Context, token string) (*models.User, services.VerifyOutcome, error)
}

type UserService interface {
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*models.User, error)
	UpdateName(ctx context.Context, userID, name string) (*models.User, error)
	Profile(ctx context.Context, userID string) (models.PublicProfile, error)
	List(ctx context.Context, page models.Page) ([]*models.User, error)
}

type ContentService interface {
	CreateTag(ctx context.Context, name string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	DeleteTag(ctx context.Context, id string) error

	CreateOrganization(ctx context.Context, in services.OrganizationInput) (*models.Organization, error)
	GetOrganization(ctx context.Context, slug string) (*models.Organization, error)
	ListOrganizations(ctx context.Context, page models.Page) ([]*models.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	AttachContact(ctx context.Context, orgID, contactID string) error
	DetachContact(ctx context.Context, orgID, contactID string) error
	AttachResource(ctx context.Context, orgID, resourceID string) error
	DetachResource(ctx context.Context, orgID, resourceID string) error

	CreateContact(ctx context.Context, in services.ContactInput) (*models.Contact, error)
	GetContact(ctx context.Context, id string) (*models.Contact, error)
	ListContacts(ctx context.Context, page models.Page) ([]*models.Contact, error)
	DeleteContact(ctx context.Context, id string) error

	CreateAnnouncement(ctx context.Context, in services.AnnouncementInput) (*models.Announcement, error)
	GetAnnouncement(ctx context.Context, slug string) (*models.Announcement, error)
	ListAnnouncements(ctx context.Context, page models.Page) ([]*models.Announcement, error)
	Dashboard(ctx context.Context, userID string, page models.Page) ([]*models.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error

	CreateEvent(ctx context.Context, in services.EventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, page models.Page) ([]*models.Event, error)
	MapEvents(ctx context.Context) ([]*models.Event, error)
	JoinEvent(ctx context.Context, eventID, userID string) error
	LeaveEvent(ctx context.Context, eventID, userID string) error
	DeleteEvent(ctx context.Context, id string) error

	CreateResource(ctx context.Context, in services.ResourceInput) (*models.Resource, error)
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context, page models.Page) ([]*models.Resource, error)
	DeleteResource(ctx context.Context, id string) error

	FollowTag(ctx context.Context, userID, tagID string) error
	UnfollowTag(ctx context.Context, userID, tagID string) error
	FollowOrganization(ctx context.Context, userID, orgID string) error
	UnfollowOrganization(ctx context.Context, userID, orgID string) error
	Subscriptions(ctx context.Context, userID string) (*services.Subscriptions, error)
}

type StorageService interface {
	PresignUpload(ctx context.Context, resourceID string) (key, url string, err error)
	PresignDownload(ctx context.Context, resourceID string) (string, error)
}

// HealthChecker reports whether a backing dependency answers.
type HealthChecker func(ctx context.Context) error

type HTTPServer struct {
	address   string
	accounts  AccountService
	users     UserService
	content   ContentService
	storage   StorageService
	logger    logging.Logger
	jwtSecret []byte
	authLimit ratelimit.Policy
	health    HealthChecker

	// errorTracking marks panic logs for forwarding to the error tracker.
	errorTracking bool
}

// Option customises an HTTPServer.
type Option func(*HTTPServer)

// WithAuthRateLimit throttles the unauthenticated auth endpoints.
func WithAuthRateLimit(p ratelimit.Policy) Option {
	return func(s *HTTPServer) { s.authLimit = p }
}

// WithErrorTracking flags panic logs for the error tracker when dsn is set.
func WithErrorTracking(dsn string) Option {
	return func(s *HTTPServer) { s.errorTracking = dsn != "" }
}

// WithHealthCheck makes /healthz report the result of check.
func WithHealthCheck(check HealthChecker) Option {
	return func(s *HTTPServer) { s.health = check }
}

func NewHTTPServer(address string, l logging.Logger, as AccountService, us UserService, cs ContentService, ss StorageService, secretKey string, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		address:   address,
		accounts:  as,
		users:     us,
		content:   cs,
		storage:   ss,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
	for _, o := range opts {
		o(s)
	}
	if s.authLimit.Logger == nil {
		s.authLimit.Logger = s.logger
	}
	return s
}

// Handler builds the routing tree.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Get("/healthz", s.healthz)
	r.Get("/verify/{token}", s.verifyLink)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(s.authLimit.Middleware)
			r.Post("/signup", s.signup)
			r.Post("/verify", s.verify)
			r.Post("/verify/resend", s.resendVerification)
			r.Post("/login", s.login)
			r.Post("/refresh", s.refresh)
			r.Post("/logout", s.logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/users/me", s.me)
			r.Patch("/users/me", s.updateMe)
			r.Get("/users/{id}", s.profile)

			r.Get("/dashboard", s.dashboard)
			r.Get("/subscriptions", s.subscriptions)
			r.Put("/subscriptions/tags/{id}", s.followTag)
			r.Delete("/subscriptions/tags/{id}", s.unfollowTag)
			r.Put("/subscriptions/organizations/{id}", s.followOrganization)
			r.Delete("/subscriptions/organizations/{id}", s.unfollowOrganization)

			r.Get("/tags", s.listTags)
			r.Get("/organizations", s.listOrganizations)
			r.Get("/organizations/{slug}", s.getOrganization)
			r.Get("/announcements", s.listAnnouncements)
			r.Get("/announcements/{slug}", s.getAnnouncement)
			r.Get("/events", s.listEvents)
			r.Get("/events/map", s.mapEvents)
			r.Get("/events/{id}", s.getEvent)
			r.Post("/events/{id}/join", s.joinEvent)
			r.Post("/events/{id}/leave", s.leaveEvent)
			r.Get("/resources", s.listResources)
			r.Get("/resources/{id}", s.getResource)
			r.Get("/resources/{id}/attachment", s.downloadAttachment)
			r.Get("/contacts", s.listContacts)
			r.Get("/contacts/{id}", s.getContact)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireSuperuser)
				r.Get("/users", s.listUsers)
				r.Post("/tags", s.createTag)
				r.Post("/organizations", s.createOrganization)
				r.Post("/announcements", s.createAnnouncement)
				r.Post("/events", s.createEvent)
				r.Post("/resources", s.createResource)
				r.Post("/resources/{id}/attachment", s.uploadAttachment)
				r.Post("/contacts", s.createContact)
				r.Put("/organizations/{id}/contacts/{contactID}", s.attachContact)
				r.Delete("/organizations/{id}/contacts/{contactID}", s.detachContact)
				r.Put("/organizations/{id}/resources/{resourceID}", s.attachResource)
				r.Delete("/organizations/{id}/resources/{resourceID}", s.detachResource)
				r.Delete("/{kind}/{id}", s.deleteContent)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "database unavailable", nil)
			return
		}
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
