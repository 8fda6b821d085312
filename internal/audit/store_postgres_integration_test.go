//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"attestor/internal/audit"
	id "attestor/pkg/domain"
	txcontext "attestor/pkg/platform/tx"
	"attestor/pkg/testutil/containers"
)

const actorAddr = id.Identity("0x00000000000000000000000000000000000000a1")

type OutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *OutboxSuite) TearDownSuite() {
	s.postgres.Close(context.Background())
}

func (s *OutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *OutboxSuite) append(action audit.Action) audit.Event {
	event := audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Action:    action,
		Actor:     actorAddr,
	}
	s.Require().NoError(s.store.Append(context.Background(), event))
	return event
}

func (s *OutboxSuite) TestAppendAndListByActor() {
	first := s.append(audit.ActionIssuerAdded)
	second := s.append(audit.ActionIssuerRemoved)

	events, err := s.store.ListByActor(context.Background(), actorAddr.String())
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(first.ID, events[0].ID)
	s.Equal(audit.ActionIssuerAdded, events[0].Action)
	s.Equal(second.ID, events[1].ID)
	s.Equal(actorAddr, events[1].Actor)
}

func (s *OutboxSuite) TestRelayClaimCycle() {
	ctx := context.Background()
	first := s.append(audit.ActionCredentialIssued)
	second := s.append(audit.ActionCredentialRevoked)

	batch, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 2)
	s.Equal(first.ID, batch[0].EventID)
	s.Equal(second.ID, batch[1].EventID)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(batch[0].Payload, &body))
	s.Equal("credential.issued", body["action"])

	s.Require().NoError(s.store.MarkPublished(ctx, []int64{batch[0].ID}))

	remaining, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(second.ID, remaining[0].EventID)

	s.Require().NoError(s.store.MarkPublished(ctx, []int64{remaining[0].ID}))

	drained, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Empty(drained)
}

func (s *OutboxSuite) TestNextBatchHonorsLimit() {
	for range 5 {
		s.append(audit.ActionIssuerAdded)
	}

	batch, err := s.store.NextBatch(context.Background(), 3)
	s.Require().NoError(err)
	s.Len(batch, 3)
}

// An event appended inside a caller transaction must commit or revert with it.
func (s *OutboxSuite) TestAppendFollowsCallerTransaction() {
	ctx := context.Background()
	event := audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    audit.ActionCredentialIssued,
		Actor:     actorAddr,
	}

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(txcontext.WithTx(ctx, tx), event))
	s.Require().NoError(tx.Rollback())

	batch, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Empty(batch)

	tx, err = s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(txcontext.WithTx(ctx, tx), event))
	s.Require().NoError(tx.Commit())

	batch, err = s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.Equal(event.ID, batch[0].EventID)
}

func (s *OutboxSuite) TestDuplicateEventIDRejected() {
	event := s.append(audit.ActionAdminInitialized)
	s.Error(s.store.Append(context.Background(), event))
}
