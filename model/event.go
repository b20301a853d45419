// Package model contains all domain models and data structures for the tracking pipeline.
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// EventType identifies the kind of behavioral event being captured.
type EventType string

const (
	// EventTypeTrack is a custom behavioral event with a required name.
	EventTypeTrack EventType = "track"

	// EventTypeIdentify attaches a user id and traits to the current device.
	EventTypeIdentify EventType = "identify"

	// EventTypeScreen is a page/screen view event with a required name.
	EventTypeScreen EventType = "screen"
)

// Properties represents arbitrary JSON-serializable event attributes.
type Properties map[string]any

// Traits represents user attributes attached by identify/set calls.
// Successive identify calls merge traits rather than replacing them.
type Traits map[string]any

// Context is the device/session/page metadata snapshot taken atomically
// at event capture time. Every event carries a non-empty Context.
type Context struct {
	AnonymousID string         `json:"anonymousId"`
	SessionID   string         `json:"sessionId"`
	UserID      string         `json:"userId,omitempty"`
	PageURL     string         `json:"pageUrl,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CollectIP   bool           `json:"ip"`
}

// Validate checks the context invariants: a snapshot always carries the
// anonymous device id and the session it was captured under.
func (c Context) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AnonymousID, validation.Required),
		validation.Field(&c.SessionID, validation.Required),
	)
}

// Event is an immutable behavioral event record.
//
// Invariants:
//   - every event has a non-zero Context and Timestamp
//   - track and screen events have a non-empty Name
//
// Events are stamped by the Tracker facade at call time and never mutated
// afterwards; the delivery pipeline treats them as opaque payloads.
type Event struct {
	Type       EventType  `json:"type"`
	Name       string     `json:"name,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	Traits     Traits     `json:"traits,omitempty"`
	Properties Properties `json:"properties,omitempty"`
	Context    Context    `json:"context"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewTrackEvent creates a track event stamped with the given context snapshot.
func NewTrackEvent(name string, properties Properties, ctx Context, at time.Time) Event {
	return Event{
		Type:       EventTypeTrack,
		Name:       name,
		UserID:     ctx.UserID,
		Properties: properties,
		Context:    ctx,
		Timestamp:  at,
	}
}

// NewScreenEvent creates a screen view event stamped with the given context snapshot.
func NewScreenEvent(name string, properties Properties, ctx Context, at time.Time) Event {
	return Event{
		Type:       EventTypeScreen,
		Name:       name,
		UserID:     ctx.UserID,
		Properties: properties,
		Context:    ctx,
		Timestamp:  at,
	}
}

// NewIdentifyEvent creates an identify event carrying the merged user traits.
func NewIdentifyEvent(userID string, traits Traits, ctx Context, at time.Time) Event {
	return Event{
		Type:      EventTypeIdentify,
		UserID:    userID,
		Traits:    traits,
		Context:   ctx,
		Timestamp: at,
	}
}

// Validate checks the event invariants described on the Event type.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required,
			validation.In(EventTypeTrack, EventTypeIdentify, EventTypeScreen)),
		validation.Field(&e.Name,
			validation.Required.When(e.Type == EventTypeTrack || e.Type == EventTypeScreen)),
		validation.Field(&e.UserID,
			validation.Required.When(e.Type == EventTypeIdentify)),
		validation.Field(&e.Timestamp, validation.Required),
		validation.Field(&e.Context),
	)
}
