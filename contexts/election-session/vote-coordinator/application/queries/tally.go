package queries

import (
	"context"
	"log/slog"

	application "quorum/contexts/election-session/vote-coordinator/application"
	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	"quorum/contexts/election-session/vote-coordinator/ports"
)

// TallyUseCase serves the read side of the session: catalog listing, per-voter
// vote status, and the pull variant of the tally snapshot.
type TallyUseCase struct {
	Candidates ports.CandidateRepository
	Votes      ports.VoteRepository
	Tally      ports.TallyReader
	Logger     *slog.Logger
}

func (uc TallyUseCase) ListCandidates(ctx context.Context) ([]entities.Candidate, error) {
	return uc.Candidates.ListCandidates(ctx)
}

// VoteStatus reports whether the voter has cast a vote. A lookup failure is
// deliberately tolerated as "has not voted": a transient read glitch must
// never block a vote attempt, and CastVote re-validates atomically regardless
// of what this reports.
func (uc TallyUseCase) VoteStatus(ctx context.Context, voterID int64) bool {
	logger := application.ResolveLogger(uc.Logger)
	if voterID <= 0 {
		return false
	}
	hasVoted, err := uc.Votes.HasVoted(ctx, voterID)
	if err != nil {
		logger.Warn("vote status lookup failed; reporting not voted",
			"event", "session_vote_status_lookup_failed",
			"module", "election-session/vote-coordinator",
			"layer", "application",
			"voter_id", voterID,
			"error", err.Error(),
		)
		return false
	}
	return hasVoted
}

// CurrentTally computes the snapshot from a consistent aggregate read joined
// with the candidate catalog. Candidates without votes appear with zero.
func (uc TallyUseCase) CurrentTally(ctx context.Context) (entities.TallySnapshot, error) {
	counts, err := uc.Tally.CountTally(ctx)
	if err != nil {
		return entities.TallySnapshot{}, err
	}
	candidates, err := uc.Candidates.ListCandidates(ctx)
	if err != nil {
		return entities.TallySnapshot{}, err
	}
	return entities.NewTallySnapshot(counts, candidates), nil
}
