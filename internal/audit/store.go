package audit

import "context"

// Store is an append-only sink for audit events. The postgres implementation
// doubles as the outbox the Kafka relay drains.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor string) ([]Event, error)
}
