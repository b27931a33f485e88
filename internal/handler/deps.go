package handler

import (
	"chatsync/internal/app/chat"
	"chatsync/internal/app/storage"
	"chatsync/internal/app/user"
	"chatsync/internal/configs"
	"chatsync/internal/pkg/limiter"
)

// AppDeps is everything the local API serves from.
type AppDeps struct {
	Session *chat.Session
	Users   user.Provider
	Config  *configs.AppConfig

	// SendLimiter throttles POST /api/messages per caller IP.
	SendLimiter *limiter.IPRateLimiter

	// Avatars is nil when no bucket is configured.
	Avatars storage.AvatarStore
}
