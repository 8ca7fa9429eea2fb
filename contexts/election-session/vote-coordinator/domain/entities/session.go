package entities

import "time"

type VoterRole string

const (
	RoleVoter VoterRole = "voter"
	RoleAdmin VoterRole = "admin"
)

// Voter is a registered participant. The identity token is opaque to the
// engine and unique per voter; the surrogate ID is the join key everywhere
// else.
type Voter struct {
	ID        int64
	Token     string
	Name      string
	Role      VoterRole
	CreatedAt time.Time
}

type Candidate struct {
	ID    int64
	Name  string
	Party string
	Image string
}

// Vote is an immutable fact linking one voter to one candidate. VoterID is
// unique across all votes; that uniqueness is the exactly-once invariant.
type Vote struct {
	ID          int64
	VoterID     int64
	CandidateID int64
	CastAt      time.Time
}

// TallyCounts is the raw aggregate read from storage. Adapters must produce
// all three figures from one consistent point in time.
type TallyCounts struct {
	TotalVoters      int
	TotalVotes       int
	VotesByCandidate map[int64]int
}

type CandidateTally struct {
	CandidateID int64
	Name        string
	Party       string
	Image       string
	Votes       int
}

type TallySnapshot struct {
	TotalVoters  int
	TotalVotes   int
	PerCandidate []CandidateTally
}

// NewTallySnapshot joins raw counts with the candidate catalog. Every catalog
// candidate appears in the output, zero votes included, in catalog order.
func NewTallySnapshot(counts TallyCounts, candidates []Candidate) TallySnapshot {
	snapshot := TallySnapshot{
		TotalVoters:  counts.TotalVoters,
		TotalVotes:   counts.TotalVotes,
		PerCandidate: make([]CandidateTally, 0, len(candidates)),
	}
	for _, candidate := range candidates {
		snapshot.PerCandidate = append(snapshot.PerCandidate, CandidateTally{
			CandidateID: candidate.ID,
			Name:        candidate.Name,
			Party:       candidate.Party,
			Image:       candidate.Image,
			Votes:       counts.VotesByCandidate[candidate.ID],
		})
	}
	return snapshot
}
