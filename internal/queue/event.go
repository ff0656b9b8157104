// Package queue defines message payloads exchanged over the message broker.
package queue

// InspectionSubmittedEvent is published after an inspection form has been
// stored. It carries enough to log or notify without querying the database.
type InspectionSubmittedEvent struct {
	InspectionID string `json:"inspection_id"`
	Placa        string `json:"placa,omitempty"`
	Cedula       string `json:"cedula,omitempty"`
	Conductor    string `json:"conductor,omitempty"`
	SubmittedBy  string `json:"submitted_by,omitempty"`
	SubmittedAt  string `json:"submitted_at"`
}
