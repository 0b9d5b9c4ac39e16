// Package workflow holds the per-collection form state of an admin session:
// the draft being edited, the record it targets, and the last list shown.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"cognetex/api/internal/content"
)

var (
	ErrSaving        = errors.New("a save is already in progress")
	ErrUnknownEntity = errors.New("record is not in the current list")
	ErrInvalidValues = errors.New("form values could not be read")
)

const refreshFailedMessage = "Unable to load admin data."

// Repository is the write path the forms drive.
type Repository interface {
	Create(ctx context.Context, kind content.Kind, draft content.Draft) (string, error)
	Update(ctx context.Context, kind content.Kind, id string, patch content.Patch) error
	Delete(ctx context.Context, kind content.Kind, id string) error
	List(ctx context.Context, kind content.Kind) ([]content.Entity, error)
}

// Controller is the kind-independent face of a form.
type Controller interface {
	Kind() content.Kind
	Snapshot() any
	LastError() string
	SetValuesJSON(raw json.RawMessage) error
	SelectByID(ctx context.Context, id string) error
	Reset()
	Submit(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
}

type formDef[E content.Entity, D content.Draft] struct {
	kind        content.Kind
	invalid     string
	saveFailed  string
	delFailed   string
	createLabel string
	updateLabel string
	empty       func() D
	fromEntity  func(E) D
	patch       func(D) content.Patch
}

// View is what an admin sees of one form.
type View[E content.Entity, D content.Draft] struct {
	Kind        content.Kind `json:"kind"`
	Values      D            `json:"values"`
	EditingID   string       `json:"editingId,omitempty"`
	Mode        string       `json:"mode"`
	SubmitLabel string       `json:"submitLabel"`
	Saving      bool         `json:"saving"`
	Error       string       `json:"error,omitempty"`
	Items       []E          `json:"items"`
}

// Form is the create/edit form and list of one collection.
type Form[E content.Entity, D content.Draft] struct {
	def formDef[E, D]
	repo Repository

	mu        sync.Mutex
	values    D
	editingID string
	saving    bool
	lastError string
	items     []E
}

func newForm[E content.Entity, D content.Draft](repo Repository, def formDef[E, D]) *Form[E, D] {
	return &Form[E, D]{def: def, repo: repo, values: def.empty(), items: []E{}}
}

func (f *Form[E, D]) Kind() content.Kind { return f.def.kind }

func (f *Form[E, D]) View() View[E, D] {
	f.mu.Lock()
	defer f.mu.Unlock()
	view := View[E, D]{
		Kind:        f.def.kind,
		Values:      f.values,
		EditingID:   f.editingID,
		Mode:        "create",
		SubmitLabel: f.def.createLabel,
		Saving:      f.saving,
		Error:       f.lastError,
		Items:       make([]E, len(f.items)),
	}
	copy(view.Items, f.items)
	if f.editingID != "" {
		view.Mode = "edit"
		view.SubmitLabel = f.def.updateLabel
	}
	return view
}

func (f *Form[E, D]) Snapshot() any { return f.View() }

// LastError is the message shown above the form, if any.
func (f *Form[E, D]) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

// Values returns the current draft.
func (f *Form[E, D]) Values() D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// SelectForEdit loads entity into the form and targets it for update.
func (f *Form[E, D]) SelectForEdit(entity E) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.def.fromEntity(entity)
	f.editingID = entity.EntityID()
	f.lastError = ""
}

// SelectByID selects an entity from the last refreshed list, refreshing once
// if it is not there.
func (f *Form[E, D]) SelectByID(ctx context.Context, id string) error {
	if entity, ok := f.find(id); ok {
		f.SelectForEdit(entity)
		return nil
	}
	if err := f.Refresh(ctx); err != nil {
		return err
	}
	entity, ok := f.find(id)
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrUnknownEntity, f.def.kind.Noun(), id)
	}
	f.SelectForEdit(entity)
	return nil
}

func (f *Form[E, D]) SetValues(values D) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = values
}

// SetValuesJSON replaces the draft with raw decoded over an empty form.
func (f *Form[E, D]) SetValuesJSON(raw json.RawMessage) error {
	values := f.def.empty()
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&values); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValues, err)
	}
	f.SetValues(values)
	return nil
}

// Reset clears the form back to create mode.
func (f *Form[E, D]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.def.empty()
	f.editingID = ""
	f.lastError = ""
}

// Submit validates the draft and writes it: an update when a record is
// selected, a create otherwise. An invalid draft is never written. A failed
// write keeps the draft so it can be resubmitted.
func (f *Form[E, D]) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.saving {
		f.mu.Unlock()
		return ErrSaving
	}
	f.lastError = ""
	values := f.values
	editingID := f.editingID
	if err := values.Validate(); err != nil {
		f.lastError = f.def.invalid
		f.mu.Unlock()
		return err
	}
	f.saving = true
	f.mu.Unlock()

	var err error
	if editingID != "" {
		err = f.repo.Update(ctx, f.def.kind, editingID, f.def.patch(values))
	} else {
		_, err = f.repo.Create(ctx, f.def.kind, values)
	}

	f.mu.Lock()
	f.saving = false
	if err != nil {
		log.Printf("workflow: save %s: %v", f.def.kind.Noun(), err)
		f.lastError = f.def.saveFailed
		f.mu.Unlock()
		return err
	}
	f.values = f.def.empty()
	f.editingID = ""
	f.mu.Unlock()

	if err := f.Refresh(ctx); err != nil {
		log.Printf("workflow: refresh %s after save: %v", f.def.kind, err)
	}
	return nil
}

// Delete removes a record and refreshes the list whatever the outcome. A
// failed delete is reported as the form error.
func (f *Form[E, D]) Delete(ctx context.Context, id string) error {
	err := f.repo.Delete(ctx, f.def.kind, id)
	if err != nil {
		log.Printf("workflow: delete %s %s: %v", f.def.kind.Noun(), id, err)
	}
	f.mu.Lock()
	if err != nil {
		f.lastError = f.def.delFailed
	} else {
		f.lastError = ""
		if f.editingID == id {
			f.values = f.def.empty()
			f.editingID = ""
		}
	}
	f.mu.Unlock()

	if refreshErr := f.Refresh(ctx); refreshErr != nil && err == nil {
		return refreshErr
	}
	return err
}

// Refresh reloads the list from the repository.
func (f *Form[E, D]) Refresh(ctx context.Context) error {
	entities, err := f.repo.List(ctx, f.def.kind)
	if err != nil {
		log.Printf("workflow: list %s: %v", f.def.kind, err)
		f.mu.Lock()
		f.lastError = refreshFailedMessage
		f.mu.Unlock()
		return err
	}
	items := make([]E, 0, len(entities))
	for _, entity := range entities {
		item, ok := entity.(E)
		if !ok {
			return fmt.Errorf("list %s: unexpected record type %T", f.def.kind, entity)
		}
		items = append(items, item)
	}
	f.mu.Lock()
	f.items = items
	if f.lastError == refreshFailedMessage {
		f.lastError = ""
	}
	f.mu.Unlock()
	return nil
}

func (f *Form[E, D]) find(id string) (E, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero E
	return zero, false
}

// update edits the draft in place, used for fields filled from outside the
// form such as an uploaded image.
func (f *Form[E, D]) update(fn func(*D)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.values)
	f.lastError = ""
}
