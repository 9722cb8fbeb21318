package marketplaceledger

import (
	"log/slog"

	httpadapter "github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/adapters/http"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/adapters/memory"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/application"
	"github.com/dionatanalves/croakmarket/contexts/trading/marketplace-ledger/ports"
)

// Module is the composition surface for the marketplace ledger.
// Runtime wiring should consume Handler; Store is exposed for tests/inspection.
type Module struct {
	Handler httpadapter.Handler
	Service *application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Items           ports.ItemRepository
	Auctions        ports.AuctionRepository
	Treasury        ports.Treasury
	Events          ports.EventLog
	Clock           ports.Clock
	IDGenerator     ports.IDGenerator
	FeePercent      int64
	OperatorAccount string
	Logger          *slog.Logger
}

// NewModule wires the ledger service against explicit ports.
func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Items:           deps.Items,
		Auctions:        deps.Auctions,
		Treasury:        deps.Treasury,
		Events:          deps.Events,
		Clock:           deps.Clock,
		IDGen:           deps.IDGenerator,
		FeePercent:      deps.FeePercent,
		OperatorAccount: deps.OperatorAccount,
		Logger:          deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule wires the ledger against the in-memory adapter. This is
// the default runtime path when no Postgres DSN is configured.
func NewInMemoryModule(feePercent int64, operatorAccount string, logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	module := NewModule(Dependencies{
		Items:           store,
		Auctions:        store,
		Treasury:        store,
		Events:          store,
		Clock:           store,
		IDGenerator:     store,
		FeePercent:      feePercent,
		OperatorAccount: operatorAccount,
		Logger:          logger,
	})
	module.Store = store
	return module
}
