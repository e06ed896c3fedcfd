package services

import (
	"context"

	"github.com/google/uuid"
)

// EventPublisher announces thread activity so polling clients can
// refresh cheaply. Publishing is best-effort; failures are logged by
// implementations and never fail the mutation that triggered them.
type EventPublisher interface {
	ThreadUpdated(ctx context.Context, channelID, threadID uuid.UUID)
}

type NoopEventPublisher struct{}

func (NoopEventPublisher) ThreadUpdated(ctx context.Context, channelID, threadID uuid.UUID) {}
