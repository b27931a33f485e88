package handler

import (
	"net/http"

	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/resp"
)

// requireClaims rejects requests that carry no valid token.
func requireClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if jwt.ClaimsFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotSignedIn))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireOwner checks that the caller's token belongs to the signed-in
// account. Only the account owner may change chat state.
func requireOwner(deps *AppDeps, r *http.Request) *errs.CustomError {
	claims := jwt.ClaimsFromContext(r)
	if claims == nil {
		return errs.NewError(errs.ErrNotSignedIn)
	}

	current := deps.Users.CurrentUser()
	if current == nil {
		return errs.NewError(errs.ErrNotSignedIn)
	}

	if claims.Subject != current.ID {
		logx.Warn("Request rejected: token subject does not match current user.", "path", r.URL.Path)
		return errs.NewError(errs.ErrUnauthorized)
	}
	return nil
}
