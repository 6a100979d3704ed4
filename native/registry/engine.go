package registry

import (
	"bytes"
	"errors"
	"sort"
	"time"

	"sparkmarket/core/events"
	"sparkmarket/core/types"
)

var (
	errNilState = errors.New("registry engine: state not configured")

	// ErrAlreadyRegistered is returned when a collection is added twice.
	ErrAlreadyRegistered = errors.New("registry: collection already registered")
	// ErrNotRegistered is returned when an operation references a collection
	// that was never added (or has been removed).
	ErrNotRegistered = errors.New("registry: collection not registered")
)

type engineState interface {
	RegistryGet(collection [20]byte) (*Record, bool, error)
	RegistryPut(record *Record) error
	RegistryDelete(collection [20]byte) error
	RegistryList() ([]*Record, error)
}

// Engine answers whether an asset collection is onboarded and verified. Both
// marketplace engines consult it before accepting a new listing.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a registry engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(wrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Add registers a collection in the unverified state.
func (e *Engine) Add(collection [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.RegistryGet(collection); err != nil {
		return err
	} else if ok {
		return ErrAlreadyRegistered
	}
	record := &Record{
		Collection: collection,
		Registered: true,
		AddedAt:    e.now(),
	}
	if err := e.state.RegistryPut(record); err != nil {
		return err
	}
	e.emit(newCollectionAddedEvent(record))
	return nil
}

// Verify marks a registered collection as verified. Verifying an already
// verified collection is a no-op.
func (e *Engine) Verify(collection [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	record, ok, err := e.state.RegistryGet(collection)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRegistered
	}
	if record.Verified {
		return nil
	}
	record.Verified = true
	record.VerifiedAt = e.now()
	if err := e.state.RegistryPut(record); err != nil {
		return err
	}
	e.emit(newCollectionVerifiedEvent(record))
	return nil
}

// Remove clears a collection from the registry entirely.
func (e *Engine) Remove(collection [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	record, ok, err := e.state.RegistryGet(collection)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRegistered
	}
	if err := e.state.RegistryDelete(collection); err != nil {
		return err
	}
	e.emit(newCollectionRemovedEvent(record))
	return nil
}

// ExistingContract reports whether the collection is present in the registry.
func (e *Engine) ExistingContract(collection [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	_, ok, err := e.state.RegistryGet(collection)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// IsVerified returns the verified flag for a registered collection.
func (e *Engine) IsVerified(collection [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	record, ok, err := e.state.RegistryGet(collection)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotRegistered
	}
	return record.Verified, nil
}

// ListRegistered returns every registered collection sorted by address.
func (e *Engine) ListRegistered() ([][20]byte, error) {
	return e.list(func(*Record) bool { return true })
}

// ListVerified returns every verified collection sorted by address.
func (e *Engine) ListVerified() ([][20]byte, error) {
	return e.list(func(r *Record) bool { return r.Verified })
}

func (e *Engine) list(keep func(*Record) bool) ([][20]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	records, err := e.state.RegistryList()
	if err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(records))
	for _, record := range records {
		if record == nil || !keep(record) {
			continue
		}
		out = append(out, record.Collection)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out, nil
}
