package registry

import (
	"encoding/hex"
	"strconv"

	"sparkmarket/core/types"
)

const (
	EventTypeCollectionAdded    = "registry.collection.added"
	EventTypeCollectionVerified = "registry.collection.verified"
	EventTypeCollectionRemoved  = "registry.collection.removed"
)

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

func wrapEvent(evt *types.Event) registryEvent { return registryEvent{evt: evt} }

func newCollectionAddedEvent(r *Record) *types.Event {
	return newRegistryEvent(EventTypeCollectionAdded, r)
}

func newCollectionVerifiedEvent(r *Record) *types.Event {
	return newRegistryEvent(EventTypeCollectionVerified, r)
}

func newCollectionRemovedEvent(r *Record) *types.Event {
	return newRegistryEvent(EventTypeCollectionRemoved, r)
}

func newRegistryEvent(eventType string, r *Record) *types.Event {
	attrs := make(map[string]string)
	if r != nil {
		attrs["collection"] = hex.EncodeToString(r.Collection[:])
		attrs["verified"] = strconv.FormatBool(r.Verified)
		attrs["addedAt"] = strconv.FormatInt(r.AddedAt, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
