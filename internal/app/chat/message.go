/*
Package chat keeps a local view of a group chat consistent with the remote
store.

A Session owns five activities: the connectivity Monitor, which gates
everything else; the Presence heartbeat; the Roster of online users; the
message Feed; and the Composer that sends new messages. Each activity is the
only writer of its own state, and readers take immutable snapshots.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chatsync/internal/app/store"
)

// Remote tables, views and procedures the client reads and writes.
const (
	TableProfiles      = "profiles"
	TableMessages      = "messages"
	ViewOnlineUsers    = "online_users"
	ProcUpdatePresence = "update_user_presence"
)

const (
	// DefaultHistoryLimit is the size of the initial message window.
	DefaultHistoryLimit = 50

	// MaxContentBytes is the largest draft the Composer will send.
	MaxContentBytes = 5000

	// AnonymousName is the sender name when neither a profile name nor an
	// email is available.
	AnonymousName = "Anonymous"

	labelIDLength = 8
)

// Message is one chat message. Messages are never edited; the sender name
// and avatar are captured when the message is sent.
type Message struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Text            string    `json:"text"`
	UserID          string    `json:"user_id"`
	UserDisplayName string    `json:"user_display_name"`
	UserAvatarURL   *string   `json:"user_avatar_url"`
}

// OnlineUser is a row of the online_users view.
type OnlineUser struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"display_name"`
	LastSeen    time.Time `json:"last_seen"`
}

// Label is the name shown in the roster: the display name, or the first
// characters of the account id when the profile has none.
func (u OnlineUser) Label() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	if len(u.ID) > labelIDLength {
		return u.ID[:labelIDLength]
	}
	return u.ID
}

// Profile is the part of an account profile used when sending.
type Profile struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// outgoingMessage is the insert body. id and created_at are left to the
// store.
type outgoingMessage struct {
	Text            string  `json:"text"`
	UserID          string  `json:"user_id"`
	UserDisplayName string  `json:"user_display_name"`
	UserAvatarURL   *string `json:"user_avatar_url"`
}

// resolveDisplayName picks the sender name: profile name, then the local
// part of the email, then AnonymousName. Empty values count as missing.
func resolveDisplayName(profile *Profile, email string) string {
	if profile != nil && profile.DisplayName != nil && *profile.DisplayName != "" {
		return *profile.DisplayName
	}
	if local, _, _ := strings.Cut(email, "@"); local != "" {
		return local
	}
	return AnonymousName
}

func resolveAvatarURL(profile *Profile) *string {
	if profile == nil || profile.AvatarURL == nil || *profile.AvatarURL == "" {
		return nil
	}
	url := *profile.AvatarURL
	return &url
}

func decodeRows[T any](rows []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, raw := range rows {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// source is the read side of the store a synchronizer needs.
type source interface {
	store.Reader
	store.Subscriber
}
