package http

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type AuthenticateRequest struct {
	Token string `json:"token"`
}

type VoterPayload struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type AuthenticateResponse struct {
	Success bool         `json:"success"`
	Voter   VoterPayload `json:"voter"`
}

type CandidatePayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Party string `json:"party"`
	Image string `json:"image"`
}

type CandidatesResponse struct {
	Success    bool               `json:"success"`
	Candidates []CandidatePayload `json:"candidates"`
}

type VoteStatusResponse struct {
	Success  bool `json:"success"`
	HasVoted bool `json:"has_voted"`
}

type CastVoteRequest struct {
	VoterID     int64 `json:"voter_id"`
	CandidateID int64 `json:"candidate_id"`
}

type CastVoteResponse struct {
	Success bool  `json:"success"`
	VoteID  int64 `json:"vote_id"`
}

type CandidateTallyPayload struct {
	CandidateID int64  `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	Image       string `json:"image"`
	Votes       int    `json:"votes"`
}

type TallyPayload struct {
	TotalVoters  int                     `json:"total_voters"`
	TotalVotes   int                     `json:"total_votes"`
	PerCandidate []CandidateTallyPayload `json:"per_candidate"`
}

type TallyResponse struct {
	Success bool         `json:"success"`
	Tally   TallyPayload `json:"tally"`
}
