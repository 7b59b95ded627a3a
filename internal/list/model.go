// Package list defines the shopping-list entity model and the view-model
// layer that binds optimistic stores and coordinators to an authoritative
// backend.
package list

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits enforced before any optimistic edit is applied.
const (
	MaxTitleLen    = 50
	MaxItemNameLen = 100
)

var (
	ErrEmptyTitle      = errors.New("list title must not be empty")
	ErrTitleTooLong    = errors.New("list title exceeds 50 characters")
	ErrEmptyItemName   = errors.New("item name must not be empty")
	ErrItemNameTooLong = errors.New("item name exceeds 100 characters")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrSelfInvite      = errors.New("cannot share a list with its owner")
	ErrAlreadyShared   = errors.New("user already has access to this list")
	ErrNotInView       = errors.New("entity not present in view")
)

// UserRef identifies a user for display purposes.
type UserRef struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Item is one entry on a shopping list. A List exclusively owns its items.
type Item struct {
	ID        string   `json:"id"`
	ListID    string   `json:"list_id"`
	Name      string   `json:"name"`
	Completed bool     `json:"completed"`
	AddedBy   *UserRef `json:"added_by,omitempty"`
}

// EntityID implements optimistic.Entity.
func (i Item) EntityID() string { return i.ID }

// Pending reports whether the item has not been confirmed by the store.
func (i Item) Pending() bool { return IsTentative(i.ID) }

// SharedUser is a reference from a list to a user granted access. Until the
// server resolves an invite the entity is keyed by lowercased email, then by
// user id once resolved; a user appears at most once per list either way.
type SharedUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// EntityID implements optimistic.Entity.
func (s SharedUser) EntityID() string {
	if s.ID != "" {
		return s.ID
	}
	return strings.ToLower(s.Email)
}

// Pending reports whether the invite has not been resolved yet.
func (s SharedUser) Pending() bool { return s.ID == "" }

// List is a shopping list owned by exactly one user and visible to any
// number of shared users.
type List struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	OwnerID   string       `json:"owner_id"`
	Owner     UserRef      `json:"owner"`
	Items     []Item       `json:"items"`
	Shared    []SharedUser `json:"shared"`
	CreatedAt int64        `json:"created_at"`
}

// EntityID implements optimistic.Entity.
func (l List) EntityID() string { return l.ID }

// Pending reports whether the list has not been confirmed by the store.
func (l List) Pending() bool { return IsTentative(l.ID) }

// TempIDPrefix marks client-generated tentative ids. The backing store never
// produces ids in this namespace, so an entity can be classified as pending
// from its id alone.
const TempIDPrefix = "tmp-"

// NewTempID returns a tentative id, unique across the session.
func NewTempID() string { return TempIDPrefix + uuid.NewString() }

// IsTentative reports whether id is a client-generated placeholder.
func IsTentative(id string) bool { return strings.HasPrefix(id, TempIDPrefix) }

// ValidateTitle checks list title constraints (1-50 chars).
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}

// ValidateItemName checks item name constraints (1-100 chars).
func ValidateItemName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyItemName
	}
	if utf8.RuneCountInString(name) > MaxItemNameLen {
		return ErrItemNameTooLong
	}
	return nil
}

// ValidateEmail performs a minimal shape check; the server resolves the
// address to a registered user.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}
