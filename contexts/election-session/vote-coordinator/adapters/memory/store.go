package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	domainerrors "quorum/contexts/election-session/vote-coordinator/domain/errors"
	"quorum/contexts/election-session/vote-coordinator/ports"

	"github.com/google/uuid"
)

// Store is an in-process implementation of every storage port. All mutation
// happens under one mutex, so check-and-insert paths are atomic and CountTally
// reads one consistent state.
type Store struct {
	mu sync.RWMutex

	voters       map[int64]entities.Voter
	tokenIndex   map[string]int64
	candidates   []entities.Candidate
	candidateIdx map[int64]int
	votes        map[int64]entities.Vote
	voteByVoter  map[int64]int64

	nextVoterID     int64
	nextCandidateID int64
	nextVoteID      int64
}

func NewStore() *Store {
	return &Store{
		voters:       make(map[int64]entities.Voter),
		tokenIndex:   make(map[string]int64),
		candidateIdx: make(map[int64]int),
		votes:        make(map[int64]entities.Vote),
		voteByVoter:  make(map[int64]int64),
	}
}

func (s *Store) FindVoterByToken(_ context.Context, token string) (entities.Voter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokenIndex[strings.TrimSpace(token)]
	if !ok {
		return entities.Voter{}, false, nil
	}
	return s.voters[id], true, nil
}

func (s *Store) CreateVoter(_ context.Context, voter entities.Voter) (entities.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := strings.TrimSpace(voter.Token)
	if _, exists := s.tokenIndex[token]; exists {
		return entities.Voter{}, domainerrors.ErrTokenConflict
	}
	s.nextVoterID++
	voter.ID = s.nextVoterID
	voter.Token = token
	s.voters[voter.ID] = voter
	s.tokenIndex[token] = voter.ID
	return voter, nil
}

func (s *Store) GetVoter(_ context.Context, voterID int64) (entities.Voter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[voterID]
	return voter, ok, nil
}

// SeedCandidates loads the catalog once; subsequent calls are no-ops so a
// restart against preserved state never duplicates the catalog.
func (s *Store) SeedCandidates(_ context.Context, candidates []entities.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.candidates) > 0 {
		return nil
	}
	for _, candidate := range candidates {
		if candidate.ID == 0 {
			s.nextCandidateID++
			candidate.ID = s.nextCandidateID
		} else if candidate.ID > s.nextCandidateID {
			s.nextCandidateID = candidate.ID
		}
		s.candidateIdx[candidate.ID] = len(s.candidates)
		s.candidates = append(s.candidates, candidate)
	}
	return nil
}

func (s *Store) ListCandidates(_ context.Context) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Candidate, len(s.candidates))
	copy(items, s.candidates)
	return items, nil
}

func (s *Store) GetCandidate(_ context.Context, candidateID int64) (entities.Candidate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.candidateIdx[candidateID]
	if !ok {
		return entities.Candidate{}, false, nil
	}
	return s.candidates[idx], true, nil
}

func (s *Store) HasVoted(_ context.Context, voterID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.voteByVoter[voterID]
	return ok, nil
}

// RecordVote is the atomic check-and-insert for the exactly-once invariant:
// the duplicate check and the insert share one lock acquisition.
func (s *Store) RecordVote(_ context.Context, vote entities.Vote) (entities.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.voteByVoter[vote.VoterID]; exists {
		return entities.Vote{}, domainerrors.ErrAlreadyVoted
	}
	s.nextVoteID++
	vote.ID = s.nextVoteID
	s.votes[vote.ID] = vote
	s.voteByVoter[vote.VoterID] = vote.ID
	return vote, nil
}

func (s *Store) CountTally(_ context.Context) (entities.TallyCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := entities.TallyCounts{
		TotalVoters:      len(s.voters),
		TotalVotes:       len(s.votes),
		VotesByCandidate: make(map[int64]int, len(s.candidates)),
	}
	for _, vote := range s.votes {
		counts.VotesByCandidate[vote.CandidateID]++
	}
	return counts, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.VoterRepository = (*Store)(nil)
var _ ports.CandidateRepository = (*Store)(nil)
var _ ports.VoteRepository = (*Store)(nil)
var _ ports.TallyReader = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
