package httpadapter

import (
	"context"
	"log/slog"

	"quorum/contexts/election-session/vote-coordinator/application/commands"
	"quorum/contexts/election-session/vote-coordinator/application/queries"
	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	httptransport "quorum/contexts/election-session/vote-coordinator/transport/http"
)

type Handler struct {
	Session *commands.SessionUseCase
	Tally   queries.TallyUseCase
	Logger  *slog.Logger
}

// AuthenticateHandler godoc
// @Summary Resolve an identity token to a voter record
// @Description Returns the existing voter for the token or registers a new one.
// @Tags session
// @Accept json
// @Produce json
// @Param request body httptransport.AuthenticateRequest true "Identity token"
// @Success 200 {object} httptransport.AuthenticateResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/session/authenticate [post]
func (h Handler) AuthenticateHandler(ctx context.Context, req httptransport.AuthenticateRequest) (httptransport.AuthenticateResponse, error) {
	voter, err := h.Session.Authenticate(ctx, commands.AuthenticateCommand{
		Token: req.Token,
	})
	if err != nil {
		return httptransport.AuthenticateResponse{}, err
	}
	return httptransport.AuthenticateResponse{
		Success: true,
		Voter: httptransport.VoterPayload{
			ID:    voter.ID,
			Token: voter.Token,
			Name:  voter.Name,
			Role:  string(voter.Role),
		},
	}, nil
}

// ListCandidatesHandler godoc
// @Summary List candidates
// @Produce json
// @Tags session
// @Success 200 {object} httptransport.CandidatesResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/session/candidates [get]
func (h Handler) ListCandidatesHandler(ctx context.Context) (httptransport.CandidatesResponse, error) {
	candidates, err := h.Tally.ListCandidates(ctx)
	if err != nil {
		return httptransport.CandidatesResponse{}, err
	}
	items := make([]httptransport.CandidatePayload, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, httptransport.CandidatePayload{
			ID:    candidate.ID,
			Name:  candidate.Name,
			Party: candidate.Party,
			Image: candidate.Image,
		})
	}
	return httptransport.CandidatesResponse{
		Success:    true,
		Candidates: items,
	}, nil
}

// VoteStatusHandler godoc
// @Summary Report whether a voter has already voted
// @Produce json
// @Tags session
// @Param voter_id path int true "Voter id"
// @Success 200 {object} httptransport.VoteStatusResponse
// @Router /api/session/voters/{voter_id}/status [get]
func (h Handler) VoteStatusHandler(ctx context.Context, voterID int64) httptransport.VoteStatusResponse {
	return httptransport.VoteStatusResponse{
		Success:  true,
		HasVoted: h.Tally.VoteStatus(ctx, voterID),
	}
}

// CastVoteHandler godoc
// @Summary Cast a vote
// @Description Records the voter's single vote and broadcasts the new tally.
// @Tags session
// @Accept json
// @Produce json
// @Param request body httptransport.CastVoteRequest true "Voter and candidate ids"
// @Success 200 {object} httptransport.CastVoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/session/votes [post]
func (h Handler) CastVoteHandler(ctx context.Context, req httptransport.CastVoteRequest) (httptransport.CastVoteResponse, error) {
	vote, err := h.Session.CastVote(ctx, commands.CastVoteCommand{
		VoterID:     req.VoterID,
		CandidateID: req.CandidateID,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		Success: true,
		VoteID:  vote.ID,
	}, nil
}

// CurrentTallyHandler godoc
// @Summary Get the current tally snapshot
// @Produce json
// @Tags session
// @Success 200 {object} httptransport.TallyResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/session/tally [get]
func (h Handler) CurrentTallyHandler(ctx context.Context) (httptransport.TallyResponse, error) {
	snapshot, err := h.Tally.CurrentTally(ctx)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		Success: true,
		Tally:   TallyPayloadFromSnapshot(snapshot),
	}, nil
}

// TallyPayloadFromSnapshot maps the domain snapshot to its transport shape;
// the SSE stream reuses it so push and pull payloads stay identical.
func TallyPayloadFromSnapshot(snapshot entities.TallySnapshot) httptransport.TallyPayload {
	payload := httptransport.TallyPayload{
		TotalVoters:  snapshot.TotalVoters,
		TotalVotes:   snapshot.TotalVotes,
		PerCandidate: make([]httptransport.CandidateTallyPayload, 0, len(snapshot.PerCandidate)),
	}
	for _, item := range snapshot.PerCandidate {
		payload.PerCandidate = append(payload.PerCandidate, httptransport.CandidateTallyPayload{
			CandidateID: item.CandidateID,
			Name:        item.Name,
			Party:       item.Party,
			Image:       item.Image,
			Votes:       item.Votes,
		})
	}
	return payload
}
