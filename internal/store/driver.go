// Package store provides persistence primitives and driver abstractions.
package store

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrClosed        = errors.New("store closed")
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (json, sqlite).
	Name() string

	ListStore
	UserStore
}

// ListStore defines operations for list, item, and share persistence.
type ListStore interface {
	CreateList(ctx context.Context, list *ListRecord) error
	GetList(ctx context.Context, id string) (*ListRecord, error)
	UpdateList(ctx context.Context, list *ListRecord) error
	// DeleteList removes a list together with its items and shares.
	DeleteList(ctx context.Context, id string) error
	// ListsForUser returns lists the user owns or has been granted access to.
	ListsForUser(ctx context.Context, userID string) ([]*ListRecord, error)

	CreateItem(ctx context.Context, item *ItemRecord) error
	GetItem(ctx context.Context, id string) (*ItemRecord, error)
	UpdateItem(ctx context.Context, item *ItemRecord) error
	DeleteItem(ctx context.Context, id string) error
	// ListItems returns a list's items in creation order.
	ListItems(ctx context.Context, listID string) ([]*ItemRecord, error)

	CreateShare(ctx context.Context, share *ShareRecord) error
	GetShare(ctx context.Context, listID, userID string) (*ShareRecord, error)
	DeleteShare(ctx context.Context, listID, userID string) error
	ListShares(ctx context.Context, listID string) ([]*ShareRecord, error)
	// ListSharesForUser returns all shares granted to a user.
	ListSharesForUser(ctx context.Context, userID string) ([]*ShareRecord, error)
}

// UserStore defines operations for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, user *UserRecord) error
	GetUser(ctx context.Context, id string) (*UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	UpdateUser(ctx context.Context, user *UserRecord) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*UserRecord, error)
}

// UserRecord is a registered user. Email is the login identifier and is
// stored lowercased.
type UserRecord struct {
	ID           string `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"password_hash,omitempty"` // omitempty for redaction
	CreatedAt    int64  `json:"created_at"`
}

// ListRecord is a shopping list.
type ListRecord struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Title     string `json:"title"`
	OwnerID   string `json:"owner_id" gorm:"index"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ItemRecord is one entry on a list. Items are exclusively owned by their
// list and are deleted with it.
type ItemRecord struct {
	ID        string `json:"id" gorm:"primaryKey"`
	ListID    string `json:"list_id" gorm:"index"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	AddedByID string `json:"added_by_id"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ShareRecord grants a user access to a list. A user appears at most once
// per list.
type ShareRecord struct {
	ListID    string `json:"list_id" gorm:"primaryKey"`
	UserID    string `json:"user_id" gorm:"primaryKey;index"`
	CreatedAt int64  `json:"created_at"`
}
