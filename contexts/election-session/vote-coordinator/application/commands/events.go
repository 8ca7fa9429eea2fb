package commands

import (
	"context"

	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	"quorum/internal/shared/events"
)

func (uc *SessionUseCase) newTallyEnvelope(ctx context.Context, snapshot entities.TallySnapshot) (events.Envelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return events.Envelope{}, err
	}
	return events.Envelope{
		EventID:        eventID,
		EventType:      TallyTopic,
		SourceService:  "vote-coordinator",
		OccurredAtUTC:  uc.now(),
		EntityType:     "tally",
		EntityID:       "current",
		PayloadVersion: 1,
		Payload:        snapshot,
	}, nil
}
