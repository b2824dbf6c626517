package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LogGateway writes messages to the log instead of sending them (WHATSAPP_MODE=dev)
type LogGateway struct {
	logger *logrus.Logger
}

// NewLogGateway creates a dev-mode gateway
func NewLogGateway(logger *logrus.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Send logs the message and returns a synthetic id
func (g *LogGateway) Send(ctx context.Context, msg Message) (string, error) {
	id := fmt.Sprintf("dev-%d", time.Now().UnixNano())
	g.logger.WithFields(logrus.Fields{
		"message_id": id,
		"to":         msg.To,
		"media_url":  msg.MediaURL,
		"body":       msg.Body,
	}).Info("WhatsApp message (dev mode, not sent)")
	return id, nil
}

// GetName returns the gateway name
func (g *LogGateway) GetName() string {
	return "log"
}
