package sqliteadapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	domainerrors "quorum/contexts/election-session/vote-coordinator/domain/errors"
	"quorum/contexts/election-session/vote-coordinator/ports"
)

// Schema notes: votes.voter_id carries the load-bearing uniqueness constraint
// for the exactly-once invariant; voters.token carries the token<->voter
// bijection.
const schema = `
CREATE TABLE IF NOT EXISTS voters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    token TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'voter',
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    party TEXT NOT NULL,
    image TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS votes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    voter_id INTEGER NOT NULL UNIQUE REFERENCES voters(id),
    candidate_id INTEGER NOT NULL REFERENCES candidates(id),
    cast_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_votes_candidate_id ON votes(candidate_id);
`

type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the schema. Safe to call multiple times.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return r.logError("session_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) FindVoterByToken(ctx context.Context, token string) (entities.Voter, bool, error) {
	var voter entities.Voter
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, name, role, created_at FROM voters WHERE token = ?`,
		strings.TrimSpace(token),
	).Scan(&voter.ID, &voter.Token, &voter.Name, &role, &voter.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Voter{}, false, nil
	}
	if err != nil {
		return entities.Voter{}, false, r.logError("session_repo_find_voter_by_token_failed", err)
	}
	voter.Role = entities.VoterRole(role)
	return voter, true, nil
}

func (r *Repository) CreateVoter(ctx context.Context, voter entities.Voter) (entities.Voter, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO voters (token, name, role, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		strings.TrimSpace(voter.Token), voter.Name, string(voter.Role), voter.CreatedAt.UTC(),
	).Scan(&voter.ID)
	if err != nil {
		if isUniqueViolation(err, "voters.token") {
			return entities.Voter{}, domainerrors.ErrTokenConflict
		}
		return entities.Voter{}, r.logError("session_repo_create_voter_failed", err)
	}
	return voter, nil
}

func (r *Repository) GetVoter(ctx context.Context, voterID int64) (entities.Voter, bool, error) {
	var voter entities.Voter
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, name, role, created_at FROM voters WHERE id = ?`,
		voterID,
	).Scan(&voter.ID, &voter.Token, &voter.Name, &role, &voter.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Voter{}, false, nil
	}
	if err != nil {
		return entities.Voter{}, false, r.logError("session_repo_get_voter_failed", err, "voter_id", voterID)
	}
	voter.Role = entities.VoterRole(role)
	return voter, true, nil
}

// SeedCandidates loads the catalog on first start only; an already populated
// catalog is left untouched.
func (r *Repository) SeedCandidates(ctx context.Context, candidates []entities.Candidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.logError("session_repo_seed_candidates_begin_failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&existing); err != nil {
		return r.logError("session_repo_seed_candidates_count_failed", err)
	}
	if existing > 0 {
		return tx.Commit()
	}
	for _, candidate := range candidates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO candidates (name, party, image) VALUES (?, ?, ?)`,
			candidate.Name, candidate.Party, candidate.Image,
		); err != nil {
			return r.logError("session_repo_seed_candidates_insert_failed", err, "candidate", candidate.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		return r.logError("session_repo_seed_candidates_commit_failed", err)
	}
	return nil
}

func (r *Repository) ListCandidates(ctx context.Context) ([]entities.Candidate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, party, image FROM candidates ORDER BY id ASC`,
	)
	if err != nil {
		return nil, r.logError("session_repo_list_candidates_failed", err)
	}
	defer rows.Close()

	items := make([]entities.Candidate, 0)
	for rows.Next() {
		var candidate entities.Candidate
		if err := rows.Scan(&candidate.ID, &candidate.Name, &candidate.Party, &candidate.Image); err != nil {
			return nil, r.logError("session_repo_scan_candidate_failed", err)
		}
		items = append(items, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, r.logError("session_repo_list_candidates_rows_failed", err)
	}
	return items, nil
}

func (r *Repository) GetCandidate(ctx context.Context, candidateID int64) (entities.Candidate, bool, error) {
	var candidate entities.Candidate
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, party, image FROM candidates WHERE id = ?`,
		candidateID,
	).Scan(&candidate.ID, &candidate.Name, &candidate.Party, &candidate.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Candidate{}, false, nil
	}
	if err != nil {
		return entities.Candidate{}, false, r.logError("session_repo_get_candidate_failed", err, "candidate_id", candidateID)
	}
	return candidate, true, nil
}

func (r *Repository) HasVoted(ctx context.Context, voterID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE voter_id = ?`,
		voterID,
	).Scan(&count)
	if err != nil {
		return false, r.logError("session_repo_has_voted_failed", err, "voter_id", voterID)
	}
	return count > 0, nil
}

// RecordVote relies on the voter_id uniqueness constraint for atomicity; the
// constraint violation translates to ErrAlreadyVoted and commits nothing.
func (r *Repository) RecordVote(ctx context.Context, vote entities.Vote) (entities.Vote, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO votes (voter_id, candidate_id, cast_at) VALUES (?, ?, ?) RETURNING id`,
		vote.VoterID, vote.CandidateID, vote.CastAt.UTC(),
	).Scan(&vote.ID)
	if err != nil {
		if isUniqueViolation(err, "votes.voter_id") {
			return entities.Vote{}, domainerrors.ErrAlreadyVoted
		}
		return entities.Vote{}, r.logError("session_repo_record_vote_failed", err,
			"voter_id", vote.VoterID,
			"candidate_id", vote.CandidateID,
		)
	}
	return vote, nil
}

// CountTally reads the three aggregates inside one transaction so the counts
// reflect a single point in time relative to concurrent commits.
func (r *Repository) CountTally(ctx context.Context) (entities.TallyCounts, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entities.TallyCounts{}, r.logError("session_repo_count_tally_begin_failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	counts := entities.TallyCounts{VotesByCandidate: make(map[int64]int)}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM voters`).Scan(&counts.TotalVoters); err != nil {
		return entities.TallyCounts{}, r.logError("session_repo_count_voters_failed", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes`).Scan(&counts.TotalVotes); err != nil {
		return entities.TallyCounts{}, r.logError("session_repo_count_votes_failed", err)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT candidate_id, COUNT(*) FROM votes GROUP BY candidate_id`,
	)
	if err != nil {
		return entities.TallyCounts{}, r.logError("session_repo_count_per_candidate_failed", err)
	}
	defer rows.Close()
	for rows.Next() {
		var candidateID int64
		var votes int
		if err := rows.Scan(&candidateID, &votes); err != nil {
			return entities.TallyCounts{}, r.logError("session_repo_scan_candidate_count_failed", err)
		}
		counts.VotesByCandidate[candidateID] = votes
	}
	if err := rows.Err(); err != nil {
		return entities.TallyCounts{}, r.logError("session_repo_count_tally_rows_failed", err)
	}
	if err := tx.Commit(); err != nil {
		return entities.TallyCounts{}, r.logError("session_repo_count_tally_commit_failed", err)
	}
	return counts, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-session/vote-coordinator",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("session repository operation failed", fields...)
	return err
}

// isUniqueViolation matches on the driver's error text; modernc.org/sqlite
// reports constraint failures as "UNIQUE constraint failed: <table>.<column>".
func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "UNIQUE constraint failed") && strings.Contains(message, constraint)
}

var _ ports.VoterRepository = (*Repository)(nil)
var _ ports.CandidateRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.TallyReader = (*Repository)(nil)
