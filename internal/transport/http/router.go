package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"threadx/internal/cache"
	"threadx/internal/config"
	"threadx/internal/handler"
	"threadx/internal/httputil"
	"threadx/internal/realtime"
	"threadx/internal/service"
	authmw "threadx/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	FollowHandler       *handler.FollowHandler
	ThreadHandler       *handler.ThreadHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	SettingsHandler     *handler.SettingsHandler
	MediaHandler        *handler.MediaHandler
	ChangesHandler      *handler.ChangesHandler
	Hub                 *realtime.Hub
	Auth                authmw.Authenticator
	Logger              zerolog.Logger
}

// NewRouterConfig builds every handler over svcs. changes may be nil when
// the change stream is disabled.
func NewRouterConfig(cfg *config.Config, svcs *service.Services, hub *realtime.Hub, changes cache.ChangeLog, log zerolog.Logger) RouterConfig {
	return RouterConfig{
		AuthHandler:         handler.NewAuthHandler(svcs.Identity, cfg),
		UserHandler:         handler.NewUserHandler(svcs.Search, svcs.Follows, svcs.Threads),
		FollowHandler:       handler.NewFollowHandler(svcs.Follows),
		ThreadHandler:       handler.NewThreadHandler(svcs.Threads),
		CommentHandler:      handler.NewCommentHandler(svcs.Threads),
		NotificationHandler: handler.NewNotificationHandler(svcs.Notifications),
		SettingsHandler:     handler.NewSettingsHandler(svcs.Preferences),
		MediaHandler:        handler.NewMediaHandler(svcs.Media),
		ChangesHandler:      handler.NewChangesHandler(changes),
		Hub:                 hub,
		Auth:                svcs.Identity,
		Logger:              log,
	}
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(authmw.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// Theme is a device preference, readable before sign-in
	r.Get("/settings/theme", cfg.SettingsHandler.Theme)
	r.Put("/settings/theme", cfg.SettingsHandler.SetTheme)

	// Protected routes - require the live session token
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.Auth))

		r.Post("/auth/logout", cfg.AuthHandler.Logout)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", cfg.AuthHandler.Me)
			r.Patch("/", cfg.AuthHandler.UpdateMe)
			r.Delete("/", cfg.AuthHandler.DeleteMe)
			r.Post("/avatar", cfg.MediaHandler.UploadAvatar)
			r.Put("/password", cfg.AuthHandler.ChangePassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", cfg.UserHandler.Search)
			r.Get("/{id}", cfg.UserHandler.GetProfile)
			r.Get("/{id}/threads", cfg.UserHandler.Threads)
			r.Get("/{id}/followers", cfg.FollowHandler.GetFollowers)
			r.Get("/{id}/following", cfg.FollowHandler.GetFollowing)
			r.Post("/{id}/follow", cfg.FollowHandler.Follow)
			r.Delete("/{id}/follow", cfg.FollowHandler.Unfollow)
		})
		r.Get("/suggestions", cfg.FollowHandler.Suggestions)

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", cfg.ThreadHandler.List)
			r.Post("/", cfg.ThreadHandler.Create)
			r.Get("/{id}", cfg.ThreadHandler.GetByID)
			r.Delete("/{id}", cfg.ThreadHandler.Delete)
			r.Post("/{id}/like", cfg.ThreadHandler.Like)
			r.Post("/{id}/repost", cfg.ThreadHandler.Repost)
			r.Post("/{id}/privacy", cfg.ThreadHandler.TogglePrivacy)

			r.Post("/{id}/comments", cfg.CommentHandler.Create)
			r.Delete("/{id}/comments/{commentId}", cfg.CommentHandler.Delete)
			r.Post("/{id}/comments/{commentId}/replies", cfg.CommentHandler.Reply)
			r.Delete("/{id}/comments/{commentId}/replies/{replyId}", cfg.CommentHandler.DeleteReply)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Delete("/", cfg.NotificationHandler.Clear)
			r.Get("/unread-count", cfg.NotificationHandler.UnreadCount)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
			r.Post("/{id}/read", cfg.NotificationHandler.MarkRead)
			r.Delete("/{id}", cfg.NotificationHandler.Delete)
		})

		r.Route("/recent-searches", func(r chi.Router) {
			r.Get("/", cfg.SettingsHandler.RecentSearches)
			r.Delete("/", cfg.SettingsHandler.ClearRecentSearches)
			r.Delete("/{id}", cfg.SettingsHandler.RemoveRecentSearch)
		})

		r.Get("/changes", cfg.ChangesHandler.Since)
		r.Get("/ws/changes", cfg.Hub.ServeWS(func(r *http.Request) string {
			return authmw.UserIDFromContext(r.Context())
		}))
	})

	return r
}
