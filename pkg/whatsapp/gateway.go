package whatsapp

import "context"

// Message is one outbound WhatsApp message
type Message struct {
	To       string // E.164 phone number
	Body     string
	MediaURL string // optional publicly reachable attachment
}

// Gateway defines the interface for sending WhatsApp messages
type Gateway interface {
	// Send delivers a message and returns the provider's message id
	Send(ctx context.Context, msg Message) (string, error)

	// GetName returns the name of the gateway implementation
	GetName() string
}
