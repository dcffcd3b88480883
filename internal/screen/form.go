package screen

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/editor"
)

// MsgMalformedDraft is returned when the submitted draft is not valid JSON
// for the screen's form.
const MsgMalformedDraft = "El formulario enviado no es válido."

// Draft is an open modal as sent to the browser.
type Draft struct {
	ID     string       `json:"id,omitempty"`
	Phase  editor.Phase `json:"phase"`
	Values any          `json:"draft,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Form erases the entity and draft types of a modal.
type Form interface {
	Open(ctx context.Context, env Env, id string) (Draft, error)
	Save(ctx context.Context, env Env, id string, raw []byte) (editor.Outcome, error)
}

// SchemaFunc builds the modal schema, optionally from reference data.
type SchemaFunc[E, D any] func(env Env) editor.Schema[E, D]

// TypedForm runs an editor.Modal for entity E edited as draft D.
type TypedForm[E, D any] struct {
	schema   SchemaFunc[E, D]
	validate *validator.Validate
}

// NewForm wraps schema. A nil validator gets the default one.
func NewForm[E, D any](schema SchemaFunc[E, D], v *validator.Validate) *TypedForm[E, D] {
	if v == nil {
		v = editor.NewValidator()
	}
	return &TypedForm[E, D]{schema: schema, validate: v}
}

// Open loads or initialises the draft. A failed load still returns the
// Failed modal so the banner can be shown.
func (f *TypedForm[E, D]) Open(ctx context.Context, env Env, id string) (Draft, error) {
	m := editor.New(env.Remote, f.schema(env), f.validate)
	err := m.Open(ctx, id)
	out := Draft{ID: m.ID(), Phase: m.Phase(), Error: m.Error()}
	if values, ok := m.Draft(); ok {
		out.Values = values
	}
	if out.ID == "" {
		out.ID = id
	}
	return out, err
}

// Save decodes the draft, re-enters the modal and submits it.
func (f *TypedForm[E, D]) Save(ctx context.Context, env Env, id string, raw []byte) (editor.Outcome, error) {
	var draft D
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&draft); err != nil {
		return editor.Outcome{}, &editor.ValidationError{
			Message: MsgMalformedDraft,
			Fields:  editor.FieldErrors{"draft": err.Error()},
		}
	}
	m := editor.New(env.Remote, f.schema(env), f.validate)
	if err := m.Resume(id, draft); err != nil {
		return editor.Outcome{}, err
	}
	return m.Submit(ctx)
}
