// Package model defines the app event payloads sent to the Graph API.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ActionSource tells the Graph API where the conversion happened.
type ActionSource string

const (
	ActionSourceApp             ActionSource = "app"
	ActionSourceWebsite         ActionSource = "website"
	ActionSourceEmail           ActionSource = "email"
	ActionSourcePhoneCall       ActionSource = "phone_call"
	ActionSourceChat            ActionSource = "chat"
	ActionSourcePhysicalStore   ActionSource = "physical_store"
	ActionSourceSystemGenerated ActionSource = "system_generated"
	ActionSourceOther           ActionSource = "other"
)

// Valid reports whether s is one of the accepted action sources.
func (s ActionSource) Valid() bool {
	switch s {
	case ActionSourceApp, ActionSourceWebsite, ActionSourceEmail, ActionSourcePhoneCall,
		ActionSourceChat, ActionSourcePhysicalStore, ActionSourceSystemGenerated, ActionSourceOther:
		return true
	default:
		return false
	}
}

// Event is a single app event. Pointer fields are optional and omitted from the
// payload when nil.
type Event struct {
	// EventName is either a StandardEvent or a custom name.
	EventName string
	// EventTime is the Unix time in seconds at which the event happened.
	EventTime int64
	// ActionSource defaults to ActionSourceApp when empty.
	ActionSource ActionSource
	// EventID is used by the Graph API to deduplicate events.
	EventID *string

	UserData   *UserData
	CustomData *CustomData
	AppData    *AppData

	// Automatically collected device context.
	AppVersion         *string
	OSVersion          *string
	DeviceModel        *string
	Locale             *string
	Timezone           *string
	Carrier            *string
	ScreenWidth        *int
	ScreenHeight       *int
	ScreenDensity      *decimal.Decimal
	CPUCores           *int
	TotalDiskSpaceGB   *int
	FreeDiskSpaceGB    *int
	DeviceTimeZoneAbbr *string
	InferredEventName  *string
	Implicit           *int
	LogTime            *int64

	// Extra holds properties without a named field. They are written next to the
	// named fields, not nested.
	Extra map[string]any
}

// NewEvent returns an app event with the required fields set.
func NewEvent(name string, eventTime int64) Event {
	return Event{
		EventName:    name,
		EventTime:    eventTime,
		ActionSource: ActionSourceApp,
	}
}

// Source returns the action source, falling back to ActionSourceApp.
func (e *Event) Source() ActionSource {
	if e.ActionSource == "" {
		return ActionSourceApp
	}

	return e.ActionSource
}

// Validate checks the fields the Graph API requires.
func (e *Event) Validate() error {
	if e.EventName == "" {
		return fmt.Errorf("%w: event_name is required", ErrInvalidEvent)
	}

	if e.EventTime <= 0 {
		return fmt.Errorf("%w: event_time is required", ErrInvalidEvent)
	}

	if !e.Source().Valid() {
		return fmt.Errorf("%w: unknown action_source %q", ErrInvalidEvent, e.ActionSource)
	}

	return nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
