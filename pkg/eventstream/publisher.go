package eventstream

import "context"

// Publisher publishes index events to an event stream backend.
type Publisher interface {
	PublishIndexBuilt(ctx context.Context, event *IndexBuiltEvent) error
	Close() error
}
