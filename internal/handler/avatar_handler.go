package handler

import (
	"errors"
	"net/http"

	"chatsync/internal/app/storage"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/resp"
)

// HandlePresignAvatar resolves ?key= to a short-lived download URL.
// Absolute URLs are returned unchanged.
func HandlePresignAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Avatars == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := storage.ResolveAvatar(r.Context(), deps.Avatars, key, storage.DefaultURLExpiration)
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		case errors.Is(err, storage.ErrNotFound):
			resp.RespondError(w, r, errs.NewError(errs.ErrAvatarNotFound))
			return
		case err != nil:
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"url":       url,
			"expiresIn": int(storage.DefaultURLExpiration.Seconds()),
		})
	}
}
