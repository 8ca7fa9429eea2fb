package votecoordinator

import (
	"context"
	"log/slog"

	httpadapter "quorum/contexts/election-session/vote-coordinator/adapters/http"
	"quorum/contexts/election-session/vote-coordinator/adapters/memory"
	"quorum/contexts/election-session/vote-coordinator/application/commands"
	"quorum/contexts/election-session/vote-coordinator/application/queries"
	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	"quorum/contexts/election-session/vote-coordinator/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Session *commands.SessionUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Voters      ports.VoterRepository
	Candidates  ports.CandidateRepository
	Votes       ports.VoteRepository
	Tally       ports.TallyReader
	Publisher   ports.TallyPublisher
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	AdminTokens []string
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	adminTokens := make(map[string]struct{}, len(deps.AdminTokens))
	for _, token := range deps.AdminTokens {
		adminTokens[token] = struct{}{}
	}
	session := &commands.SessionUseCase{
		Voters:      deps.Voters,
		Candidates:  deps.Candidates,
		Votes:       deps.Votes,
		Tally:       deps.Tally,
		Publisher:   deps.Publisher,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		AdminTokens: adminTokens,
		Logger:      deps.Logger,
	}
	tally := queries.TallyUseCase{
		Candidates: deps.Candidates,
		Votes:      deps.Votes,
		Tally:      deps.Tally,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Session: session,
			Tally:   tally,
			Logger:  deps.Logger,
		},
		Session: session,
	}
}

// NewInMemoryModule wires the module against the in-process store, seeding the
// candidate catalog. Test and local wiring entry point.
func NewInMemoryModule(
	candidates []entities.Candidate,
	publisher ports.TallyPublisher,
	adminTokens []string,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	_ = store.SeedCandidates(context.Background(), candidates)
	module := NewModule(Dependencies{
		Voters:      store,
		Candidates:  store,
		Votes:       store,
		Tally:       store,
		Publisher:   publisher,
		Clock:       store,
		IDGen:       store,
		AdminTokens: adminTokens,
		Logger:      logger,
	})
	module.Store = store
	return module
}
