package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	application "quorum/contexts/election-session/vote-coordinator/application"
	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	domainerrors "quorum/contexts/election-session/vote-coordinator/domain/errors"
	"quorum/contexts/election-session/vote-coordinator/ports"
)

// TallyTopic is the broadcast topic carrying tally.updated envelopes.
const TallyTopic = "tally.updated"

// AuthenticateCommand resolves an opaque identity token to a voter record.
type AuthenticateCommand struct {
	Token string
}

// CastVoteCommand records a voter's single vote for a candidate.
type CastVoteCommand struct {
	VoterID     int64
	CandidateID int64
}

// SessionUseCase orchestrates the write side of the voting session: idempotent
// identity registration and exactly-once vote casting with tally broadcast.
//
// Two serialization disciplines apply. Operations that read-then-write one
// voter's state hold that voter's mutex for the whole critical section, with
// the storage uniqueness constraint as the backstop. Snapshot recomputation
// and publish hold a coordinator-wide mutex so the published snapshot sequence
// never regresses for any observer.
type SessionUseCase struct {
	Voters      ports.VoterRepository
	Candidates  ports.CandidateRepository
	Votes       ports.VoteRepository
	Tally       ports.TallyReader
	Publisher   ports.TallyPublisher
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	AdminTokens map[string]struct{}
	Logger      *slog.Logger

	voterLocks  sync.Map
	broadcastMu sync.Mutex
}

// Authenticate resolves a token to its voter record, creating the record on
// first sight. Two calls with the same token always return the same voter id;
// a lost creation race falls back to the row the winner inserted.
func (uc *SessionUseCase) Authenticate(ctx context.Context, cmd AuthenticateCommand) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		logger.Warn("authenticate validation failed",
			"event", "session_authenticate_validation_failed",
			"module", "election-session/vote-coordinator",
			"layer", "application",
		)
		return entities.Voter{}, domainerrors.ErrInvalidInput
	}

	if voter, found, err := uc.Voters.FindVoterByToken(ctx, token); err != nil {
		return entities.Voter{}, err
	} else if found {
		return voter, nil
	}

	role := entities.RoleVoter
	if _, seeded := uc.AdminTokens[token]; seeded {
		role = entities.RoleAdmin
	}
	voter, err := uc.Voters.CreateVoter(ctx, entities.Voter{
		Token:     token,
		Name:      fmt.Sprintf("Voter %d", rand.IntN(1000)),
		Role:      role,
		CreatedAt: uc.now(),
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrTokenConflict) {
			// A concurrent registration of the same token won; the winning row
			// is the voter record for this token.
			winner, found, lookupErr := uc.Voters.FindVoterByToken(ctx, token)
			if lookupErr != nil {
				return entities.Voter{}, lookupErr
			}
			if !found {
				return entities.Voter{}, err
			}
			return winner, nil
		}
		return entities.Voter{}, err
	}

	logger.Info("voter registered",
		"event", "session_voter_registered",
		"module", "election-session/vote-coordinator",
		"layer", "application",
		"voter_id", voter.ID,
		"role", string(voter.Role),
	)
	return voter, nil
}

// CastVote validates the voter and candidate, appends the vote fact, and on
// commit recomputes and publishes the tally snapshot. Any failure commits
// nothing; ErrAlreadyVoted is terminal for the voter and produces no
// broadcast.
func (uc *SessionUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.VoterID <= 0 || cmd.CandidateID <= 0 {
		logger.Warn("cast vote validation failed",
			"event", "session_cast_vote_validation_failed",
			"module", "election-session/vote-coordinator",
			"layer", "application",
			"voter_id", cmd.VoterID,
			"candidate_id", cmd.CandidateID,
		)
		return entities.Vote{}, domainerrors.ErrInvalidInput
	}

	unlock := uc.lockVoter(cmd.VoterID)
	defer unlock()

	if _, found, err := uc.Voters.GetVoter(ctx, cmd.VoterID); err != nil {
		return entities.Vote{}, err
	} else if !found {
		return entities.Vote{}, domainerrors.ErrVoterNotFound
	}
	if _, found, err := uc.Candidates.GetCandidate(ctx, cmd.CandidateID); err != nil {
		return entities.Vote{}, err
	} else if !found {
		return entities.Vote{}, domainerrors.ErrUnknownCandidate
	}

	vote, err := uc.Votes.RecordVote(ctx, entities.Vote{
		VoterID:     cmd.VoterID,
		CandidateID: cmd.CandidateID,
		CastAt:      uc.now(),
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) {
			logger.Info("duplicate vote rejected",
				"event", "session_cast_vote_duplicate",
				"module", "election-session/vote-coordinator",
				"layer", "application",
				"voter_id", cmd.VoterID,
			)
		}
		return entities.Vote{}, err
	}

	logger.Info("vote recorded",
		"event", "session_vote_recorded",
		"module", "election-session/vote-coordinator",
		"layer", "application",
		"vote_id", vote.ID,
		"voter_id", vote.VoterID,
		"candidate_id", vote.CandidateID,
	)

	uc.broadcastTally(ctx, vote)
	return vote, nil
}

// broadcastTally recomputes the snapshot and fans it out. The vote is already
// committed; a broadcast failure is logged and never surfaced to the caller,
// observers recover via the pull endpoint or the next push.
func (uc *SessionUseCase) broadcastTally(ctx context.Context, vote entities.Vote) {
	// Publisher is optional for pure read/test wiring.
	if uc.Publisher == nil {
		return
	}
	logger := application.ResolveLogger(uc.Logger)

	uc.broadcastMu.Lock()
	defer uc.broadcastMu.Unlock()

	counts, err := uc.Tally.CountTally(ctx)
	if err != nil {
		logger.Error("tally recomputation after vote failed",
			"event", "session_tally_recompute_failed",
			"module", "election-session/vote-coordinator",
			"layer", "application",
			"vote_id", vote.ID,
			"error", err.Error(),
		)
		return
	}
	candidates, err := uc.Candidates.ListCandidates(ctx)
	if err != nil {
		logger.Error("candidate list for broadcast failed",
			"event", "session_tally_candidates_failed",
			"module", "election-session/vote-coordinator",
			"layer", "application",
			"vote_id", vote.ID,
			"error", err.Error(),
		)
		return
	}
	snapshot := entities.NewTallySnapshot(counts, candidates)

	envelope, err := uc.newTallyEnvelope(ctx, snapshot)
	if err != nil {
		logger.Error("tally envelope build failed",
			"event", "session_tally_envelope_failed",
			"module", "election-session/vote-coordinator",
			"layer", "application",
			"vote_id", vote.ID,
			"error", err.Error(),
		)
		return
	}
	if err := uc.Publisher.Publish(ctx, TallyTopic, envelope); err != nil {
		logger.Warn("tally broadcast failed",
			"event", "session_tally_broadcast_failed",
			"module", "election-session/vote-coordinator",
			"layer", "application",
			"vote_id", vote.ID,
			"error", err.Error(),
		)
		return
	}
	logger.Info("tally broadcast published",
		"event", "session_tally_broadcast_published",
		"module", "election-session/vote-coordinator",
		"layer", "application",
		"total_votes", snapshot.TotalVotes,
	)
}

func (uc *SessionUseCase) lockVoter(voterID int64) func() {
	actual, _ := uc.voterLocks.LoadOrStore(voterID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (uc *SessionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
