// Package identity maps transport-level senders onto stored users,
// provisioning them lazily on first sighting.
package identity

import (
	"context"

	"github.com/konverner/budget-telegram-bot/internal/store"
)

// Users is the slice of the user store the resolver needs.
type Users interface {
	Find(ctx context.Context, id int64) (*store.User, error)
	Create(ctx context.Context, u *store.User) (*store.User, error)
}

type Resolver struct {
	users       Users
	defaultLang string
	supported   func(lang string) bool
}

func NewResolver(users Users, defaultLang string, supported func(string) bool) *Resolver {
	return &Resolver{users: users, defaultLang: defaultLang, supported: supported}
}

// Resolve returns the stored user for senderID, creating one on first
// sighting. Creation goes through the store's insert-or-fetch path, so
// concurrent first sightings of the same sender never produce
// duplicates. rawLang is the language reported by the transport; it is
// kept only when a locale table exists for it.
func (r *Resolver) Resolve(ctx context.Context, senderID int64, username, rawLang string) (*store.User, error) {
	u, err := r.users.Find(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	lang := rawLang
	if lang == "" || !r.supported(lang) {
		lang = r.defaultLang
	}

	return r.users.Create(ctx, &store.User{
		ID:       senderID,
		Username: username,
		Lang:     lang,
		Roles:    []string{store.RoleUser},
	})
}
