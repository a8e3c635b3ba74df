package nop

import (
	"context"

	"github.com/papercomputeco/wcagrag/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishIndexBuilt validates input and otherwise does nothing.
func (p *Publisher) PublishIndexBuilt(_ context.Context, event *eventstream.IndexBuiltEvent) error {
	if event == nil {
		return eventstream.ErrNilIndexEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
