package stvcounting

import (
	"log/slog"
	"time"

	httpadapter "wrightstv/contexts/elections/stv-counting/adapters/http"
	"wrightstv/contexts/elections/stv-counting/adapters/memory"
	"wrightstv/contexts/elections/stv-counting/application/commands"
	"wrightstv/contexts/elections/stv-counting/application/queries"
	"wrightstv/contexts/elections/stv-counting/domain/entities"
	"wrightstv/contexts/elections/stv-counting/domain/stv"
	"wrightstv/contexts/elections/stv-counting/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections      ports.ElectionRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	TieBreak       stv.TieBreak
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	electionUseCase := commands.ElectionUseCase{
		Elections:      deps.Elections,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		TieBreak:       deps.TieBreak,
		Logger:         deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Elections: deps.Elections,
	}
	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Results:   resultsUseCase,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Election, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Elections:      store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		TieBreak:       stv.FewerUnitsFirst,
		Logger:         logger,
	})
	module.Store = store
	return module
}
