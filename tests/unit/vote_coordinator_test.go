package unit

import (
	"context"
	"errors"
	"sync"
	"testing"

	votecoordinator "quorum/contexts/election-session/vote-coordinator"
	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	domainerrors "quorum/contexts/election-session/vote-coordinator/domain/errors"
	httptransport "quorum/contexts/election-session/vote-coordinator/transport/http"
	"quorum/internal/shared/events"
)

func testCandidates() []entities.Candidate {
	return []entities.Candidate{
		{Name: "Jane Smith", Party: "Progressive Party", Image: "https://example.com/jane.jpg"},
		{Name: "John Davis", Party: "Conservative Party", Image: "https://example.com/john.jpg"},
	}
}

func TestAuthenticateRegistersAndReplaysToken(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)

	first, err := module.Handler.AuthenticateHandler(context.Background(), httptransport.AuthenticateRequest{Token: "token-alpha"})
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if first.Voter.ID == 0 {
		t.Fatalf("expected assigned voter id")
	}
	if first.Voter.Role != string(entities.RoleVoter) {
		t.Fatalf("expected voter role, got %s", first.Voter.Role)
	}

	replay, err := module.Handler.AuthenticateHandler(context.Background(), httptransport.AuthenticateRequest{Token: "token-alpha"})
	if err != nil {
		t.Fatalf("replay authenticate failed: %v", err)
	}
	if replay.Voter.ID != first.Voter.ID {
		t.Fatalf("expected same voter id for same token, got %d and %d", first.Voter.ID, replay.Voter.ID)
	}

	other, err := module.Handler.AuthenticateHandler(context.Background(), httptransport.AuthenticateRequest{Token: "token-beta"})
	if err != nil {
		t.Fatalf("authenticate second token failed: %v", err)
	}
	if other.Voter.ID == first.Voter.ID {
		t.Fatalf("distinct tokens must resolve to distinct voters")
	}
}

func TestAuthenticateRejectsBlankToken(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)

	_, err := module.Handler.AuthenticateHandler(context.Background(), httptransport.AuthenticateRequest{Token: "   "})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAuthenticateAdminTokenResolvesAdminRole(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, []string{"root-token"}, nil)

	resp, err := module.Handler.AuthenticateHandler(context.Background(), httptransport.AuthenticateRequest{Token: "root-token"})
	if err != nil {
		t.Fatalf("authenticate admin failed: %v", err)
	}
	if resp.Voter.Role != string(entities.RoleAdmin) {
		t.Fatalf("expected admin role, got %s", resp.Voter.Role)
	}
}

func TestCastVoteRecordsOnceAndRejectsDuplicate(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)
	ctx := context.Background()

	voter := mustAuthenticate(t, module, "token-gamma")
	candidates := mustListCandidates(t, module)

	first, err := module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: candidates[0].ID,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if first.VoteID == 0 {
		t.Fatalf("expected assigned vote id")
	}

	_, err = module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: candidates[1].ID,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}

	tally, err := module.Handler.CurrentTallyHandler(ctx)
	if err != nil {
		t.Fatalf("current tally failed: %v", err)
	}
	if tally.Tally.TotalVotes != 1 {
		t.Fatalf("duplicate cast must not change the tally, got %d votes", tally.Tally.TotalVotes)
	}
	if tally.Tally.PerCandidate[0].Votes != 1 || tally.Tally.PerCandidate[1].Votes != 0 {
		t.Fatalf("unexpected per-candidate counts: %+v", tally.Tally.PerCandidate)
	}
}

func TestCastVoteUnregisteredVoter(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)
	candidates := mustListCandidates(t, module)

	_, err := module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     999,
		CandidateID: candidates[0].ID,
	})
	if !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected voter not found, got %v", err)
	}
}

func TestCastVoteUnknownCandidateLeavesVoterEligible(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)
	ctx := context.Background()

	voter := mustAuthenticate(t, module, "token-delta")

	_, err := module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: 424242,
	})
	if !errors.Is(err, domainerrors.ErrUnknownCandidate) {
		t.Fatalf("expected unknown candidate, got %v", err)
	}

	status := module.Handler.VoteStatusHandler(ctx, voter.ID)
	if status.HasVoted {
		t.Fatalf("failed cast must not mark the voter as having voted")
	}

	candidates := mustListCandidates(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: candidates[0].ID,
	}); err != nil {
		t.Fatalf("vote after failed attempt should succeed: %v", err)
	}
}

func TestCastVoteRejectsNonPositiveIDs(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)

	_, err := module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     0,
		CandidateID: 1,
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestVoteStatusLifecycle(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)
	ctx := context.Background()

	voter := mustAuthenticate(t, module, "token-epsilon")
	if module.Handler.VoteStatusHandler(ctx, voter.ID).HasVoted {
		t.Fatalf("fresh voter must report not voted")
	}

	candidates := mustListCandidates(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: candidates[0].ID,
	}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	if !module.Handler.VoteStatusHandler(ctx, voter.ID).HasVoted {
		t.Fatalf("voter must report voted after cast")
	}
}

func TestTallyIncludesZeroVoteCandidates(t *testing.T) {
	module := votecoordinator.NewInMemoryModule(testCandidates(), nil, nil, nil)
	ctx := context.Background()

	voter := mustAuthenticate(t, module, "token-zeta")
	candidates := mustListCandidates(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: candidates[0].ID,
	}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	tally, err := module.Handler.CurrentTallyHandler(ctx)
	if err != nil {
		t.Fatalf("current tally failed: %v", err)
	}
	if len(tally.Tally.PerCandidate) != len(candidates) {
		t.Fatalf("every catalog candidate must appear in the tally, got %d of %d", len(tally.Tally.PerCandidate), len(candidates))
	}
	if tally.Tally.TotalVoters != 1 || tally.Tally.TotalVotes != 1 {
		t.Fatalf("unexpected totals: %+v", tally.Tally)
	}
	for _, item := range tally.Tally.PerCandidate {
		if item.CandidateID == candidates[1].ID && item.Votes != 0 {
			t.Fatalf("candidate without votes must report zero, got %d", item.Votes)
		}
	}
}

func TestTallyBroadcastPublishedAfterVote(t *testing.T) {
	publisher := &recordingPublisher{}
	module := votecoordinator.NewInMemoryModule(testCandidates(), publisher, nil, nil)
	ctx := context.Background()

	voter := mustAuthenticate(t, module, "token-eta")
	candidates := mustListCandidates(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: candidates[0].ID,
	}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	published := publisher.Envelopes()
	if len(published) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(published))
	}
	envelope := published[0]
	if envelope.EventType != "tally.updated" {
		t.Fatalf("unexpected event type %s", envelope.EventType)
	}
	snapshot, ok := envelope.Payload.(entities.TallySnapshot)
	if !ok {
		t.Fatalf("expected tally snapshot payload, got %T", envelope.Payload)
	}
	if snapshot.TotalVotes != 1 {
		t.Fatalf("broadcast snapshot must reflect the committed vote, got %d", snapshot.TotalVotes)
	}
}

func TestBroadcastFailureDoesNotFailCast(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("bus unavailable")}
	module := votecoordinator.NewInMemoryModule(testCandidates(), publisher, nil, nil)
	ctx := context.Background()

	voter := mustAuthenticate(t, module, "token-theta")
	candidates := mustListCandidates(t, module)
	if _, err := module.Handler.CastVoteHandler(ctx, httptransport.CastVoteRequest{
		VoterID:     voter.ID,
		CandidateID: candidates[0].ID,
	}); err != nil {
		t.Fatalf("vote must commit even when the broadcast fails: %v", err)
	}

	tally, err := module.Handler.CurrentTallyHandler(ctx)
	if err != nil {
		t.Fatalf("current tally failed: %v", err)
	}
	if tally.Tally.TotalVotes != 1 {
		t.Fatalf("expected the committed vote in the tally, got %d", tally.Tally.TotalVotes)
	}
}

func mustAuthenticate(t *testing.T, module votecoordinator.Module, token string) httptransport.VoterPayload {
	t.Helper()
	resp, err := module.Handler.AuthenticateHandler(context.Background(), httptransport.AuthenticateRequest{Token: token})
	if err != nil {
		t.Fatalf("authenticate %s failed: %v", token, err)
	}
	return resp.Voter
}

func mustListCandidates(t *testing.T, module votecoordinator.Module) []httptransport.CandidatePayload {
	t.Helper()
	resp, err := module.Handler.ListCandidatesHandler(context.Background())
	if err != nil {
		t.Fatalf("list candidates failed: %v", err)
	}
	if len(resp.Candidates) < 2 {
		t.Fatalf("expected seeded candidates, got %d", len(resp.Candidates))
	}
	return resp.Candidates
}

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, envelope events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.envelopes = append(p.envelopes, envelope)
	return nil
}

func (p *recordingPublisher) Envelopes() []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Envelope(nil), p.envelopes...)
}
