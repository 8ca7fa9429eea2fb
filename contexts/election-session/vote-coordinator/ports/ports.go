package ports

import (
	"context"
	"time"

	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	"quorum/internal/shared/events"
)

// VoterRepository is the identity registry. CreateVoter assigns the surrogate
// id and enforces token uniqueness at the storage layer; a concurrent
// duplicate registration surfaces as ErrTokenConflict and callers resolve it
// by re-reading the winning row.
type VoterRepository interface {
	FindVoterByToken(ctx context.Context, token string) (entities.Voter, bool, error)
	CreateVoter(ctx context.Context, voter entities.Voter) (entities.Voter, error)
	GetVoter(ctx context.Context, voterID int64) (entities.Voter, bool, error)
}

// CandidateRepository is the candidate catalog. Seeding happens once at
// startup and is a no-op when the catalog is already populated.
type CandidateRepository interface {
	SeedCandidates(ctx context.Context, candidates []entities.Candidate) error
	ListCandidates(ctx context.Context) ([]entities.Candidate, error)
	GetCandidate(ctx context.Context, candidateID int64) (entities.Candidate, bool, error)
}

// VoteRepository is the append-only vote ledger. RecordVote is an atomic
// check-and-insert: no schedule of concurrent calls for one voter may produce
// two rows. Duplicate inserts surface as ErrAlreadyVoted.
type VoteRepository interface {
	HasVoted(ctx context.Context, voterID int64) (bool, error)
	RecordVote(ctx context.Context, vote entities.Vote) (entities.Vote, error)
}

// TallyReader produces the aggregate counts from one consistent point in time
// relative to concurrent writes.
type TallyReader interface {
	CountTally(ctx context.Context) (entities.TallyCounts, error)
}

// TallyPublisher is the broadcast channel boundary. The coordinator calls
// into it after a committed vote; it never calls back.
type TallyPublisher interface {
	Publish(ctx context.Context, topic string, envelope events.Envelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
