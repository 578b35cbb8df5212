// Package events publishes and consumes domain events as CloudEvents-style JSON envelopes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeComparisonSaved   = "regentroute.comparison.saved"
	TypeComparisonDeleted = "regentroute.comparison.deleted"
)

// DefaultSource is the source attribute for events emitted by the API.
const DefaultSource = "regentroute-api"

// Event is a CloudEvents 1.0 structured-mode envelope.
type Event struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// New builds an event with a fresh ID and JSON-encoded data.
func New(source, eventType, subject string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s data: %w", eventType, err)
	}

	return Event{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Type:            eventType,
		Source:          source,
		Subject:         subject,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            raw,
	}, nil
}

// Parse decodes an event envelope.
func Parse(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("parse event: missing type")
	}
	return ev, nil
}

// DecodeData unmarshals the event payload into target.
func (e Event) DecodeData(target interface{}) error {
	return json.Unmarshal(e.Data, target)
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish discards ev.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// ComparisonSaved is the payload of TypeComparisonSaved.
type ComparisonSaved struct {
	ComparisonID       string   `json:"comparisonId"`
	Name               string   `json:"name"`
	OriginAddress      string   `json:"originAddress"`
	DestinationAddress string   `json:"destinationAddress"`
	Modes              []string `json:"modes"`
}

// ComparisonDeleted is the payload of TypeComparisonDeleted.
type ComparisonDeleted struct {
	ComparisonID string `json:"comparisonId"`
}
