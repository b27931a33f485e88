package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/store/memstore"
	"chatsync/internal/app/user"
)

// seedDevelopmentStore gives the in-process store a profile for the account
// and a presence procedure that keeps the online_users view current.
func seedDevelopmentStore(mem *memstore.Store, account user.Provider) {
	identity := account.CurrentUser()
	name := developmentName(identity.Email)

	mem.Put(chat.TableProfiles, map[string]any{
		"id":           identity.ID,
		"display_name": name,
		"avatar_url":   nil,
	})

	mem.HandleRPC(chat.ProcUpdatePresence, func(ctx context.Context) error {
		current := account.CurrentUser()
		if current == nil {
			return errors.New("not authenticated")
		}
		mem.Upsert(chat.ViewOnlineUsers, map[string]any{
			"id":           current.ID,
			"display_name": name,
			"last_seen":    time.Now().UTC().Format(time.RFC3339Nano),
		})
		return nil
	})
}

func developmentName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "developer"
	}
	return local
}
