/*
Package handler serves the local API a presentation layer uses to show and
drive the chat session: read endpoints return pieces of the session snapshot,
mutating endpoints act for the signed-in account, and /ws streams snapshots
as they change.
*/
package handler

import (
	"net/http"
	"time"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/req"
	"chatsync/internal/pkg/resp"
)

type statusView struct {
	Status chat.Status    `json:"status"`
	Error  string         `json:"error,omitempty"`
	User   *user.Identity `json:"user"`
}

type feedView struct {
	Loading  bool           `json:"loading"`
	Error    string         `json:"error,omitempty"`
	Messages []chat.Message `json:"messages"`
}

type onlineUserView struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	LastSeen time.Time `json:"lastSeen"`
}

type rosterView struct {
	Count int              `json:"count"`
	Users []onlineUserView `json:"users"`
}

// DraftInput is the body of PUT /api/draft.
type DraftInput struct {
	Text string `json:"text"`
}

// HandleStatus returns the connection status and its user-facing error.
func HandleStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Session.Snapshot()
		resp.RespondSuccess(w, r, statusView{Status: snap.Status, Error: snap.Error, User: snap.User})
	}
}

// HandleMessages returns the local message feed.
func HandleMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Session.Snapshot()
		resp.RespondSuccess(w, r, feedView{Loading: snap.Loading, Error: snap.LoadError, Messages: snap.Messages})
	}
}

// HandleOnlineUsers returns the roster with display labels resolved.
func HandleOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := deps.Session.Snapshot().OnlineUsers

		view := rosterView{Count: len(users), Users: make([]onlineUserView, 0, len(users))}
		for _, u := range users {
			view.Users = append(view.Users, onlineUserView{ID: u.ID, Label: u.Label(), LastSeen: u.LastSeen})
		}
		resp.RespondSuccess(w, r, view)
	}
}

// HandleSetDraft replaces the draft.
func HandleSetDraft(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := requireOwner(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input DraftInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		composer := deps.Session.Composer()
		composer.SetDraft(input.Text)
		resp.RespondSuccess(w, r, map[string]string{"draft": composer.Draft()})
	}
}

// HandleSendMessage submits the current draft.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := requireOwner(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Session.Composer().Submit(r.Context()); err != nil {
			resp.RespondErr(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, nil)
	}
}

// HandleReload restarts the session from connecting.
func HandleReload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := requireOwner(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Session.Reload(r.Context()); err != nil {
			logx.Error(err, "Session reload failed")
			resp.RespondErr(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, nil)
	}
}

// HandleLogout signs the account out.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := requireOwner(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		deps.Session.Logout()
		resp.RespondSuccess(w, r, nil)
	}
}
