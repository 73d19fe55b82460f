// Package reaction applies like, wishlist and cart changes optimistically
// and reconciles them with a remote service.
package reaction

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConflict is returned by services when the entity is already in the
	// requested state (duplicate add, remove of something absent). The
	// synchronizer treats it as success.
	ErrConflict = errors.New("reaction already in requested state")

	ErrUnknownEntity = errors.New("unknown entity")
	ErrInvalidKind   = errors.New("invalid reaction kind")
)

type Kind string

const (
	KindLike     Kind = "like"
	KindWishlist Kind = "wishlist"
	KindCart     Kind = "cart"
)

func (k Kind) Valid() bool {
	return k == KindLike || k == KindWishlist || k == KindCart
}

// Ref names an entity in the local cache. Scope keeps apart entities from
// different sources that may share an id, such as reviews and products.
type Ref struct {
	Scope string
	ID    string
}

func (r Ref) String() string { return r.Scope + ":" + r.ID }

// Key is what the remote service sees. EntityID is the bare id; the kind
// tells the service which source it belongs to.
type Key struct {
	EntityID string
	UserID   string
	Kind     Kind
}

// Service is the remote reaction/wishlist/cart store. Add and Remove should
// be idempotent; duplicates may also be reported as ErrConflict.
type Service interface {
	Add(ctx context.Context, key Key) error
	Remove(ctx context.Context, key Key) error
	Current(ctx context.Context, key Key) (bool, error)
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level    Level     `json:"level"`
	Message  string    `json:"message"`
	EntityID string    `json:"entity_id,omitempty"`
	Kind     Kind      `json:"kind,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier receives transient messages. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
