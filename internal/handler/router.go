package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/resp"
)

// Router builds the local API. Every /api route and /ws require a token;
// mutating routes also require it to belong to the signed-in account.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "chatsync",
		})
	})

	identity := jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret)

	r.Route("/api", func(api chi.Router) {
		api.Use(identity)
		api.Use(requireClaims)

		api.Get("/status", HandleStatus(deps))
		api.Get("/messages", HandleMessages(deps))
		api.Get("/online-users", HandleOnlineUsers(deps))

		api.Put("/draft", HandleSetDraft(deps))

		send := http.Handler(HandleSendMessage(deps))
		if deps.SendLimiter != nil {
			send = deps.SendLimiter.Middleware(send)
		}
		api.Method(http.MethodPost, "/messages", send)

		api.Post("/reload", HandleReload(deps))
		api.Post("/logout", HandleLogout(deps))

		api.Get("/avatars/presign", HandlePresignAvatar(deps))
	})

	r.With(identity, requireClaims).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r
}
