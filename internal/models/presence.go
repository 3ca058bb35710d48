package models

import (
	"encoding/json"
	"time"
)

// PresenceUser is one participant shown in the presence avatars.
// It is ephemeral and never persisted.
type PresenceUser struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Avatar      string  `json:"avatar,omitempty"`
	Color       string  `json:"color"`
	Cursor      *Cursor `json:"cursor,omitempty"`
	CurrentView string  `json:"current_view,omitempty"`
	// LastSeen is serialized as unix milliseconds for the dashboard.
	LastSeen time.Time `json:"-"`
}

// Cursor is a pointer position in dashboard coordinates
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceState is what a presence consumer renders.
type PresenceState struct {
	Users     map[string]PresenceUser `json:"users"`
	LocalUser PresenceUser            `json:"local_user"`
}

// Clone returns a copy whose map and cursors are not shared.
func (u PresenceUser) Clone() PresenceUser {
	if u.Cursor != nil {
		c := *u.Cursor
		u.Cursor = &c
	}
	return u
}

func (u PresenceUser) MarshalJSON() ([]byte, error) {
	type alias PresenceUser
	return json.Marshal(struct {
		alias
		LastSeen int64 `json:"last_seen"`
	}{alias(u), u.LastSeen.UnixMilli()})
}
