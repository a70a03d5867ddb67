package widget

import (
	"fmt"

	"github.com/odyssey-erp/userboard/internal/records"
)

// Field names an editable record field.
type Field string

// Editable fields.
const (
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldUsername Field = "username"
)

// ParseField maps a form field name to a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldName, FieldEmail, FieldUsername:
		return f, nil
	}
	return "", fmt.Errorf("widget: unknown field %q", s)
}

// Editor is the modal's two-state machine. The zero value is closed.
type Editor struct {
	open   bool
	id     int
	staged records.Edit
}

// Open targets the editor at r and stages a copy of its editable fields.
func (e *Editor) Open(r records.Record) {
	e.open = true
	e.id = r.ID
	e.staged = records.EditOf(r)
}

// IsOpen reports whether a record is selected.
func (e *Editor) IsOpen() bool {
	return e.open
}

// Set stages one field. It reports false when the editor is closed.
func (e *Editor) Set(f Field, value string) bool {
	if !e.open {
		return false
	}
	switch f {
	case FieldName:
		e.staged.Name = value
	case FieldEmail:
		e.staged.Email = value
	case FieldUsername:
		e.staged.Username = value
	default:
		return false
	}
	return true
}

// Commit closes the editor and hands back the staged edit. ok is false when
// nothing was selected.
func (e *Editor) Commit() (id int, edit records.Edit, ok bool) {
	if !e.open {
		return 0, records.Edit{}, false
	}
	id, edit = e.id, e.staged
	e.Discard()
	return id, edit, true
}

// Discard closes the editor and drops staged values.
func (e *Editor) Discard() {
	*e = Editor{}
}

// View is the render-side copy of the editor.
func (e *Editor) View() ModalView {
	if !e.open {
		return ModalView{}
	}
	return ModalView{
		Open:     true,
		ID:       e.id,
		Name:     e.staged.Name,
		Email:    e.staged.Email,
		Username: e.staged.Username,
	}
}
