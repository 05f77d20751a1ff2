// Package crud keeps a locally patched copy of an API collection together
// with the add/edit form that mutates it.
package crud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/listview"
	"github.com/quizmasterpro/quizmaster/internal/validate"
)

// Entity is anything with a server-assigned id.
type Entity interface {
	GetID() int64
}

// Resource is the API surface of one collection.
type Resource[T Entity] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// ErrReadOnly is returned by resources that cannot be mutated.
var ErrReadOnly = errors.New("collection is read-only")

// Mode tells the add flow from the edit flow.
type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
)

// Form is the add/edit dialog. Creating carries only a draft; Editing also
// carries the id of the item being edited.
type Form[T Entity] struct {
	Mode   Mode
	ID     int64
	Draft  T
	Errors validate.Errors
	Err    error
}

// Open reports whether the dialog is shown.
func (f Form[T]) Open() bool { return f.Mode != Closed }

// IsEditing reports whether the dialog edits an existing item.
func (f Form[T]) IsEditing() bool { return f.Mode == Editing }

// FlashKind is the alert style of a flash message.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashDanger  FlashKind = "danger"
)

// Flash is a message shown once after an action.
type Flash struct {
	Kind FlashKind
	// Message is an i18n message id.
	Message string
}

// Collection is the local, best-effort mirror of a server collection.
type Collection[T Entity] struct {
	// Field that receives server error messages on failed create/update.
	primaryField string

	mu      sync.Mutex
	items   []T
	loading bool
	loaded  bool
	err     error
	form    Form[T]
	flash   *Flash
}

// NewCollection returns an empty collection. primaryField is the wire name
// of the field that shows server-side validation messages.
func NewCollection[T Entity](primaryField string) *Collection[T] {
	return &Collection[T]{primaryField: primaryField}
}

// Fetch replaces the local list with the server's.
func (c *Collection[T]) Fetch(ctx context.Context, res Resource[T]) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	items, err := res.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.err = err
		return fmt.Errorf("fetch list: %w", err)
	}
	c.items = items
	c.loaded = true
	c.err = nil
	return nil
}

// Loaded reports whether a fetch has succeeded at least once.
func (c *Collection[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Loading reports whether a fetch is in flight.
func (c *Collection[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last fetch.
func (c *Collection[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Items returns a copy of the local list.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Find returns the local item with id.
func (c *Collection[T]) Find(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.GetID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Search returns the items matching term on the given fields.
func (c *Collection[T]) Search(term string, fields func(T) []string) []T {
	return listview.Filter(c.Items(), term, fields)
}

// Create validates draft, posts it and appends the server copy.
func (c *Collection[T]) Create(ctx context.Context, res Resource[T], draft T) (T, error) {
	if err := validate.Struct(draft); err != nil {
		var zero T
		return zero, err
	}
	created, err := res.Create(ctx, draft)
	if err != nil {
		return created, c.mapServerError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, created)
	c.flash = &Flash{Kind: FlashSuccess, Message: "FlashCreated"}
	return created, nil
}

// Update validates item, puts it and replaces the local copy by id.
func (c *Collection[T]) Update(ctx context.Context, res Resource[T], item T) (T, error) {
	if err := validate.Struct(item); err != nil {
		var zero T
		return zero, err
	}
	updated, err := res.Update(ctx, item)
	if err != nil {
		return updated, c.mapServerError(err)
	}
	if updated.GetID() == 0 {
		// Some endpoints answer with a message only.
		updated = item
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it.GetID() == updated.GetID() {
			c.items[i] = updated
			break
		}
	}
	c.flash = &Flash{Kind: FlashSuccess, Message: "FlashUpdated"}
	return updated, nil
}

// Delete removes the item on the server and locally. Server-side cascades
// are not mirrored; descendants reconcile on their next fetch.
func (c *Collection[T]) Delete(ctx context.Context, res Resource[T], id int64) error {
	if err := res.Delete(ctx, id); err != nil {
		c.mu.Lock()
		c.flash = &Flash{Kind: FlashDanger, Message: "FlashDeleteFailed"}
		c.mu.Unlock()
		return fmt.Errorf("delete %d: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	for _, it := range c.items {
		if it.GetID() != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	c.flash = &Flash{Kind: FlashSuccess, Message: "FlashDeleted"}
	return nil
}

// mapServerError turns a server-supplied message into a field error on the
// primary field. Other failures stay generic. 401 passes through untouched.
func (c *Collection[T]) mapServerError(err error) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return err
	}
	if msg, ok := apiclient.ServerMessage(err); ok && c.primaryField != "" {
		return validate.Errors{c.primaryField: msg}
	}
	slog.Warn("collection mutation failed", "error", err)
	return err
}

// BeginCreate opens the dialog with a fresh draft.
func (c *Collection[T]) BeginCreate(draft T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = Form[T]{Mode: Creating, Draft: draft}
}

// BeginEdit opens the dialog on a copy of the local item.
func (c *Collection[T]) BeginEdit(id int64) bool {
	item, ok := c.Find(id)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = Form[T]{Mode: Editing, ID: id, Draft: item}
	return true
}

// Cancel closes the dialog and drops the draft.
func (c *Collection[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = Form[T]{}
}

// Form returns the dialog state.
func (c *Collection[T]) Form() Form[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// SubmitForm sends draft through the flow selected by the open dialog. On
// success the dialog closes; on failure it stays open with the errors set.
// withID stamps the dialog's id onto an edited draft.
func (c *Collection[T]) SubmitForm(ctx context.Context, res Resource[T], draft T, withID func(T, int64) T) error {
	form := c.Form()
	var err error
	switch form.Mode {
	case Creating:
		_, err = c.Create(ctx, res, draft)
	case Editing:
		_, err = c.Update(ctx, res, withID(draft, form.ID))
	default:
		return errors.New("no form open")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.form = Form[T]{}
		return nil
	}
	c.form.Draft = draft
	if fields, ok := validate.Fields(err); ok {
		c.form.Errors, c.form.Err = fields, nil
	} else {
		c.form.Errors, c.form.Err = nil, err
	}
	return err
}

// TakeFlash returns the pending flash message and clears it.
func (c *Collection[T]) TakeFlash() *Flash {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.flash
	c.flash = nil
	return f
}
