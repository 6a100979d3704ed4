package registry

import (
	"bytes"
	"errors"
	"testing"

	"sparkmarket/core/events"
)

type mockState struct {
	records map[[20]byte]*Record
}

func newMockState() *mockState {
	return &mockState{records: make(map[[20]byte]*Record)}
}

func (m *mockState) RegistryGet(collection [20]byte) (*Record, bool, error) {
	record, ok := m.records[collection]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) RegistryPut(record *Record) error {
	m.records[record.Collection] = record.Clone()
	return nil
}

func (m *mockState) RegistryDelete(collection [20]byte) error {
	delete(m.records, collection)
	return nil
}

func (m *mockState) RegistryList() ([]*Record, error) {
	out := make([]*Record, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record.Clone())
	}
	return out, nil
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *capturingEmitter) seen(eventType string) bool {
	for _, evt := range c.events {
		if evt.EventType() == eventType {
			return true
		}
	}
	return false
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestEngine(t *testing.T) (*Engine, *mockState, *capturingEmitter) {
	t.Helper()
	state := newMockState()
	emitter := &capturingEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1000 })
	return engine, state, emitter
}

func TestAddAndVerifyLifecycle(t *testing.T) {
	engine, _, emitter := newTestEngine(t)
	collection := newTestAddress(0xC0)

	if _, err := engine.IsVerified(collection); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered before add, got %v", err)
	}
	if err := engine.Add(collection); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := engine.Add(collection); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	exists, err := engine.ExistingContract(collection)
	if err != nil {
		t.Fatalf("existing: %v", err)
	}
	if !exists {
		t.Fatalf("expected collection to exist after add")
	}
	verified, err := engine.IsVerified(collection)
	if err != nil {
		t.Fatalf("is verified: %v", err)
	}
	if verified {
		t.Fatalf("expected freshly added collection to be unverified")
	}

	if err := engine.Verify(collection); err != nil {
		t.Fatalf("verify: %v", err)
	}
	verified, err = engine.IsVerified(collection)
	if err != nil {
		t.Fatalf("is verified: %v", err)
	}
	if !verified {
		t.Fatalf("expected collection verified")
	}
	if !emitter.seen(EventTypeCollectionAdded) {
		t.Fatalf("expected %s event", EventTypeCollectionAdded)
	}
	if !emitter.seen(EventTypeCollectionVerified) {
		t.Fatalf("expected %s event", EventTypeCollectionVerified)
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	collection := newTestAddress(0xC0)

	if err := engine.Verify(collection); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if err := engine.Add(collection); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := engine.Verify(collection); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	firstAt := state.records[collection].VerifiedAt

	engine.SetNowFunc(func() int64 { return 2000 })
	if err := engine.Verify(collection); err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if state.records[collection].VerifiedAt != firstAt {
		t.Fatalf("re-verification must not move the verification time")
	}
}

func TestRemoveClearsRecord(t *testing.T) {
	engine, _, emitter := newTestEngine(t)
	collection := newTestAddress(0xC0)

	if err := engine.Remove(collection); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if err := engine.Add(collection); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := engine.Remove(collection); err != nil {
		t.Fatalf("remove: %v", err)
	}
	exists, err := engine.ExistingContract(collection)
	if err != nil {
		t.Fatalf("existing: %v", err)
	}
	if exists {
		t.Fatalf("expected collection gone after remove")
	}
	if !emitter.seen(EventTypeCollectionRemoved) {
		t.Fatalf("expected %s event", EventTypeCollectionRemoved)
	}

	// A removed collection can be onboarded again from scratch.
	if err := engine.Add(collection); err != nil {
		t.Fatalf("re-add: %v", err)
	}
}

func TestListsAreSortedAndFiltered(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	a := newTestAddress(0x0A)
	b := newTestAddress(0x0B)
	c := newTestAddress(0x0C)

	for _, collection := range [][20]byte{c, a, b} {
		if err := engine.Add(collection); err != nil {
			t.Fatalf("add %x: %v", collection, err)
		}
	}
	if err := engine.Verify(b); err != nil {
		t.Fatalf("verify: %v", err)
	}

	registered, err := engine.ListRegistered()
	if err != nil {
		t.Fatalf("list registered: %v", err)
	}
	if len(registered) != 3 || registered[0] != a || registered[1] != b || registered[2] != c {
		t.Fatalf("expected sorted [a b c], got %x", registered)
	}
	verified, err := engine.ListVerified()
	if err != nil {
		t.Fatalf("list verified: %v", err)
	}
	if len(verified) != 1 || verified[0] != b {
		t.Fatalf("expected only b verified, got %x", verified)
	}
}
