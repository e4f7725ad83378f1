package notifier

import (
	"context"
	"log"
)

// Log writes notifications to the process log instead of delivering them.
// Default for local development.
type Log struct{}

func (Log) Send(ctx context.Context, address, subject, body string) error {
	log.Printf("notifier: to=%s subject=%q body_len=%d", address, subject, len(body))
	return nil
}
