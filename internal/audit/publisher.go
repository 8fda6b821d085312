package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "attestor/pkg/domain"
	"attestor/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records an event, filling in the envelope fields (id, timestamp,
// request metadata) the domain layer should not have to care about.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.ClientIP == "" {
		base.ClientIP = requestcontext.ClientIP(ctx)
	}
	if base.UserAgent == "" {
		base.UserAgent = requestcontext.UserAgent(ctx)
	}
	return p.store.Append(ctx, base)
}

// List returns events recorded for an actor identity.
func (p *Publisher) List(ctx context.Context, actor id.Identity) ([]Event, error) {
	return p.store.ListByActor(ctx, actor.String())
}
