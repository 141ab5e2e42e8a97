// Package models defines outbound notification payloads and delivery records.
package models

import (
	"encoding/json"
	"time"
)

// ApplicantRef is the applicant summary embedded in every notification.
type ApplicantRef struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Document string `json:"document,omitempty"`
}

// Payload is the JSON body posted to the notification endpoint.
type Payload struct {
	Event        string       `json:"event"`
	Applicant    ApplicantRef `json:"applicant"`
	Status       string       `json:"status"`
	ReviewAnswer string       `json:"reviewAnswer,omitempty"`
	Message      string       `json:"message"`
}

// DeliveryStatus tracks one notification through the dispatcher.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Delivery is one entry in the delivery log. Failed entries can be replayed
// from the admin surface.
type Delivery struct {
	ID          string
	ApplicantID string
	ExternalID  string
	Event       string
	Payload     json.RawMessage
	Status      DeliveryStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
