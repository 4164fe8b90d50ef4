package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"atmnet.com/internal/application/usecase"
	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/cardreader"
	"atmnet.com/internal/infrastructure/config"
	"atmnet.com/internal/infrastructure/logger"
	"atmnet.com/internal/infrastructure/repository"
)

const serverDir = "server"

// network is one bank ledger and the terminals wired to it
type network struct {
	ledger *repository.InMemoryLedger
	fleet  *usecase.Fleet
}

func loadConfig() (*config.Config, error) {
	// Relative to where the binary is run from
	configDir := filepath.Join("cmd", "config", serverDir)
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		configDir = filepath.Join(".", "config", serverDir)
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildNetwork seeds the ledger and registers one terminal per configured id.
// Terminals share a single reservoir or get one each, as configured.
func buildNetwork(cfg *config.Config, log logger.Logger) (*network, error) {
	accounts, err := cfg.LedgerAccounts()
	if err != nil {
		return nil, err
	}
	initialCash, err := cfg.InitialCash()
	if err != nil {
		return nil, err
	}

	ledger, err := repository.NewInMemoryLedger(accounts, log)
	if err != nil {
		return nil, fmt.Errorf("failed to seed ledger: %w", err)
	}

	var shared port.CashReservoir
	if cfg.Terminals.SharedReservoir {
		shared, err = repository.NewInMemoryCashReservoir(initialCash, log.With("reservoir", "shared"))
		if err != nil {
			return nil, err
		}
	}

	fleet := usecase.NewFleet()
	for _, id := range cfg.Terminals.IDs {
		reservoir := shared
		if reservoir == nil {
			reservoir, err = repository.NewInMemoryCashReservoir(initialCash, log.With("reservoir", id))
			if err != nil {
				return nil, err
			}
		}

		coordinator := usecase.NewTransactionCoordinator(ledger, reservoir, log)
		terminal := usecase.NewTerminal(id, cardreader.NewInMemoryCardReader(), ledger, coordinator, log)
		if err := fleet.Add(terminal, reservoir); err != nil {
			return nil, err
		}
	}

	return &network{ledger: ledger, fleet: fleet}, nil
}
