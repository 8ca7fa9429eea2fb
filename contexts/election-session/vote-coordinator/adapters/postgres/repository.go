package postgresadapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	domainerrors "quorum/contexts/election-session/vote-coordinator/domain/errors"
	"quorum/contexts/election-session/vote-coordinator/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the relations. The unique index on votes.voter_id is the
// load-bearing integrity rule for the exactly-once invariant.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&voterModel{}, &candidateModel{}, &voteModel{}); err != nil {
		return r.logError("session_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) FindVoterByToken(ctx context.Context, token string) (entities.Voter, bool, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("token = ?", strings.TrimSpace(token)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("session_repo_find_voter_by_token_failed", err)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CreateVoter(ctx context.Context, voter entities.Voter) (entities.Voter, error) {
	row := voterModel{
		Token:     strings.TrimSpace(voter.Token),
		Name:      voter.Name,
		Role:      string(voter.Role),
		CreatedAt: voter.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Voter{}, domainerrors.ErrTokenConflict
		}
		return entities.Voter{}, r.logError("session_repo_create_voter_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetVoter(ctx context.Context, voterID int64) (entities.Voter, bool, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("id = ?", voterID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("session_repo_get_voter_failed", err, "voter_id", voterID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SeedCandidates(ctx context.Context, candidates []entities.Candidate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&candidateModel{}).Count(&existing).Error; err != nil {
			return r.logError("session_repo_seed_candidates_count_failed", err)
		}
		if existing > 0 {
			return nil
		}
		for _, candidate := range candidates {
			row := candidateModel{
				Name:  candidate.Name,
				Party: candidate.Party,
				Image: candidate.Image,
			}
			if err := tx.Create(&row).Error; err != nil {
				return r.logError("session_repo_seed_candidates_insert_failed", err, "candidate", candidate.Name)
			}
		}
		return nil
	})
}

func (r *Repository) ListCandidates(ctx context.Context) ([]entities.Candidate, error) {
	var rows []candidateModel
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("session_repo_list_candidates_failed", err)
	}
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetCandidate(ctx context.Context, candidateID int64) (entities.Candidate, bool, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).
		Where("id = ?", candidateID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, false, nil
		}
		return entities.Candidate{}, false, r.logError("session_repo_get_candidate_failed", err, "candidate_id", candidateID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) HasVoted(ctx context.Context, voterID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("voter_id = ?", voterID).
		Count(&count).Error; err != nil {
		return false, r.logError("session_repo_has_voted_failed", err, "voter_id", voterID)
	}
	return count > 0, nil
}

// RecordVote relies on the voter_id unique index: the insert either commits a
// single row or fails whole, and the 23505 violation maps to ErrAlreadyVoted.
func (r *Repository) RecordVote(ctx context.Context, vote entities.Vote) (entities.Vote, error) {
	row := voteModel{
		VoterID:     vote.VoterID,
		CandidateID: vote.CandidateID,
		CastAt:      vote.CastAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Vote{}, domainerrors.ErrAlreadyVoted
		}
		return entities.Vote{}, r.logError("session_repo_record_vote_failed", err,
			"voter_id", vote.VoterID,
			"candidate_id", vote.CandidateID,
		)
	}
	return row.toEntity(), nil
}

// CountTally reads the three aggregates inside one repeatable-read
// transaction so the counts reflect a single point in time.
func (r *Repository) CountTally(ctx context.Context) (entities.TallyCounts, error) {
	counts := entities.TallyCounts{VotesByCandidate: make(map[int64]int)}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var totalVoters int64
		if err := tx.Model(&voterModel{}).Count(&totalVoters).Error; err != nil {
			return err
		}
		var totalVotes int64
		if err := tx.Model(&voteModel{}).Count(&totalVotes).Error; err != nil {
			return err
		}
		var rows []candidateCountRow
		if err := tx.Model(&voteModel{}).
			Select("candidate_id, count(*) as votes").
			Group("candidate_id").
			Scan(&rows).Error; err != nil {
			return err
		}
		counts.TotalVoters = int(totalVoters)
		counts.TotalVotes = int(totalVotes)
		for _, row := range rows {
			counts.VotesByCandidate[row.CandidateID] = row.Votes
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return entities.TallyCounts{}, r.logError("session_repo_count_tally_failed", err)
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

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type voterModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Token     string    `gorm:"column:token;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	Role      string    `gorm:"column:role"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (voterModel) TableName() string {
	return "voters"
}

func (m voterModel) toEntity() entities.Voter {
	return entities.Voter{
		ID:        m.ID,
		Token:     m.Token,
		Name:      m.Name,
		Role:      entities.VoterRole(m.Role),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type candidateModel struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name  string `gorm:"column:name"`
	Party string `gorm:"column:party"`
	Image string `gorm:"column:image"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		ID:    m.ID,
		Name:  m.Name,
		Party: m.Party,
		Image: m.Image,
	}
}

type voteModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	VoterID     int64     `gorm:"column:voter_id;uniqueIndex"`
	CandidateID int64     `gorm:"column:candidate_id;index"`
	CastAt      time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		ID:          m.ID,
		VoterID:     m.VoterID,
		CandidateID: m.CandidateID,
		CastAt:      m.CastAt.UTC(),
	}
}

type candidateCountRow struct {
	CandidateID int64 `gorm:"column:candidate_id"`
	Votes       int   `gorm:"column:votes"`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.VoterRepository = (*Repository)(nil)
var _ ports.CandidateRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.TallyReader = (*Repository)(nil)
var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
