package editor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/apiclient"
)

// Remote is the write side of the business API. *apiclient.Client satisfies it.
type Remote interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
	PutJSON(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, query url.Values) error
}

// Schema binds an entity's wire shape E to its form draft D.
type Schema[E, D any] struct {
	// Resource is the API path of the collection, e.g. "agenda".
	Resource string
	// Template returns the draft of a new record.
	Template func() D
	// FromEntity normalizes a fetched record into a draft; nulls become "".
	FromEntity func(E) D
	// Payload coerces a draft into the request body. It may return a
	// *ValidationError for values that cannot be converted.
	Payload func(D) (any, error)
	// Check runs cross-field rules struct tags cannot express.
	Check func(D) FieldErrors
}

// Modal edits exactly one record. The zero phase is Closed.
type Modal[E, D any] struct {
	schema   Schema[E, D]
	remote   Remote
	validate *validator.Validate

	mu     sync.Mutex
	phase  Phase
	id     string
	draft  D
	before Phase
	errMsg string
	fields FieldErrors
}

// New builds a closed modal.
func New[E, D any](remote Remote, schema Schema[E, D], v *validator.Validate) *Modal[E, D] {
	if v == nil {
		v = NewValidator()
	}
	return &Modal[E, D]{schema: schema, remote: remote, validate: v}
}

// Open starts create mode when id is empty, otherwise loads the record.
func (m *Modal[E, D]) Open(ctx context.Context, id string) error {
	m.mu.Lock()
	if id == "" {
		defer m.mu.Unlock()
		if err := m.transition(Empty); err != nil {
			return err
		}
		m.id = ""
		m.draft = m.schema.Template()
		m.clearErrors()
		return nil
	}
	if err := m.transition(Loading); err != nil {
		m.mu.Unlock()
		return err
	}
	m.id = id
	m.clearErrors()
	m.mu.Unlock()

	var entity E
	err := m.remote.GetJSON(ctx, apiclient.Path(m.schema.Resource, id), nil, &entity)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Loading || m.id != id {
		return ErrIllegalTransition
	}
	if err != nil {
		m.phase = Failed
		m.errMsg = apiclient.Message(err)
		return err
	}
	m.phase = Populated
	m.draft = m.schema.FromEntity(entity)
	return nil
}

// Resume re-enters an open modal with a draft the client kept, without
// fetching the record again.
func (m *Modal[E, D]) Resume(id string, draft D) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := Populated
	if id == "" {
		next = Empty
	}
	if err := m.transition(next); err != nil {
		return err
	}
	m.id = id
	m.draft = draft
	m.clearErrors()
	return nil
}

// Edit mutates the draft in place. Only Empty and Populated accept edits.
func (m *Modal[E, D]) Edit(fn func(*D)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Empty && m.phase != Populated {
		return ErrIllegalTransition
	}
	fn(&m.draft)
	return nil
}

// Submit validates the draft and, when valid, issues one POST or PUT. A
// successful save closes the modal and reports Changed.
func (m *Modal[E, D]) Submit(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	if m.phase == Saving {
		m.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if m.phase != Empty && m.phase != Populated {
		m.mu.Unlock()
		return Outcome{}, ErrIllegalTransition
	}

	fields := Validate(m.validate, m.draft)
	if m.schema.Check != nil {
		fields = merge(fields, m.schema.Check(m.draft))
	}
	var body any
	if len(fields) == 0 {
		var err error
		body, err = m.schema.Payload(m.draft)
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			fields = verr.Fields
		case err != nil:
			m.errMsg = err.Error()
			m.mu.Unlock()
			return Outcome{}, fmt.Errorf("editor: build payload: %w", err)
		}
	}
	if len(fields) > 0 {
		m.fields = fields
		m.errMsg = MsgInvalidForm
		m.mu.Unlock()
		return Outcome{}, &ValidationError{Message: MsgInvalidForm, Fields: fields}
	}

	m.before = m.phase
	m.phase = Saving
	m.clearErrors()
	id := m.id
	m.mu.Unlock()

	var err error
	if id == "" {
		err = m.remote.PostJSON(ctx, apiclient.Path(m.schema.Resource), body, nil)
	} else {
		err = m.remote.PutJSON(ctx, apiclient.Path(m.schema.Resource, id), body, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.phase = m.before
		m.errMsg = apiclient.Message(err)
		return Outcome{}, err
	}
	m.phase = Closed
	m.reset()
	return Outcome{Changed: true}, nil
}

// Cancel discards the draft. Nothing needs refreshing.
func (m *Modal[E, D]) Cancel() Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == Saving {
		return Outcome{}
	}
	m.phase = Closed
	m.reset()
	return Outcome{Changed: false}
}

// Phase returns the current state.
func (m *Modal[E, D]) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// ID returns the record being edited, "" in create mode.
func (m *Modal[E, D]) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Draft returns a copy of the draft when the phase holds one.
func (m *Modal[E, D]) Draft() (D, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.phase {
	case Empty, Populated, Saving:
		return m.draft, true
	}
	var zero D
	return zero, false
}

// Error returns the inline banner message, "" when none.
func (m *Modal[E, D]) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// FieldErrors returns the per-field messages of the last rejected submit.
func (m *Modal[E, D]) FieldErrors() FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(FieldErrors, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

func (m *Modal[E, D]) transition(to Phase) error {
	if !canTransition(m.phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.phase, to)
	}
	m.phase = to
	return nil
}

func (m *Modal[E, D]) clearErrors() {
	m.errMsg = ""
	m.fields = nil
}

func (m *Modal[E, D]) reset() {
	var zero D
	m.draft = zero
	m.id = ""
	m.clearErrors()
}

// Confirm asks the user before a destructive action.
type Confirm func(prompt string) bool

// Delete removes one record after confirmation. Declining issues no request.
func Delete(ctx context.Context, remote Remote, resource, id string, confirm Confirm) (Outcome, error) {
	if id == "" {
		return Outcome{}, errors.New("editor: delete requires an id")
	}
	if confirm == nil || !confirm(fmt.Sprintf("¿Eliminar el registro %s?", id)) {
		return Outcome{}, ErrNotConfirmed
	}
	if err := remote.Delete(ctx, apiclient.Path(resource, id), nil); err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true}, nil
}
