package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"atmnet.com/internal/application/usecase"
	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/infrastructure/logger"
)

const (
	opWithdraw = "withdraw"
	opDeposit  = "deposit"
)

type simulation struct {
	op        string
	accountID string
	pin       string
	amount    string
	terminals int
}

// terminalOutcome is what one terminal reported for its run
type terminalOutcome struct {
	TerminalID    string
	Authenticated bool
	Success       bool
	Err           error
}

type simulationReport struct {
	Outcomes  []terminalOutcome
	Balance   int64
	Available map[string]int64
}

var sim simulation //nolint:gochecknoglobals

var quiet bool //nolint:gochecknoglobals

var simulateCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "simulate",
	Short: "Drive configured terminals concurrently against one account.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		appLogger := logger.NewLogger()
		if quiet {
			appLogger = logger.NewNopLogger()
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		atm, err := buildNetwork(cfg, appLogger)
		if err != nil {
			return err
		}

		report, err := runSimulation(cmd.Context(), atm, sim)
		if err != nil {
			return err
		}

		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

// runSimulation sends every selected terminal through insert, PIN, operation
// and eject at the same time, then reads back the account and cash levels.
func runSimulation(ctx context.Context, atm *network, s simulation) (*simulationReport, error) {
	if s.op != opWithdraw && s.op != opDeposit {
		return nil, fmt.Errorf("unknown operation %q, want %s or %s", s.op, opWithdraw, opDeposit)
	}

	amount, err := entity.ParseAmount(s.amount)
	if err != nil {
		return nil, err
	}

	ids := atm.fleet.IDs()
	if s.terminals > 0 {
		if s.terminals > len(ids) {
			return nil, fmt.Errorf("%d terminals requested, %d configured", s.terminals, len(ids))
		}
		ids = ids[:s.terminals]
	}

	outcomes := make([]terminalOutcome, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = terminalOutcome{TerminalID: id}
			return atm.fleet.Use(ctx, id, func(ctx context.Context, t *usecase.Terminal) error {
				t.InsertCard(ctx, s.accountID)
				defer t.EjectCard(ctx)

				if !t.EnterPin(ctx, s.pin) {
					return nil
				}
				outcomes[i].Authenticated = true

				var (
					ok  bool
					err error
				)
				if s.op == opWithdraw {
					ok, err = t.Withdraw(ctx, amount)
				} else {
					ok, err = t.Deposit(ctx, amount)
				}
				outcomes[i].Success = ok
				outcomes[i].Err = err
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &simulationReport{
		Outcomes:  outcomes,
		Available: make(map[string]int64, len(ids)),
	}

	report.Balance, err = atm.ledger.GetBalance(context.Background(), s.accountID)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		reservoir, err := atm.fleet.Reservoir(id)
		if err != nil {
			return nil, err
		}
		report.Available[id] = reservoir.Available(context.Background())
	}

	return report, nil
}

func printReport(w io.Writer, report *simulationReport) {
	for _, o := range report.Outcomes {
		switch {
		case o.Err != nil:
			fmt.Fprintf(w, "%s: error: %v\n", o.TerminalID, o.Err)
		case !o.Authenticated:
			fmt.Fprintf(w, "%s: PIN rejected\n", o.TerminalID)
		default:
			fmt.Fprintf(w, "%s: success=%t\n", o.TerminalID, o.Success)
		}
	}

	fmt.Fprintf(w, "balance: %s\n", entity.FormatAmount(report.Balance))
	for _, o := range report.Outcomes {
		fmt.Fprintf(w, "reservoir %s: %s\n", o.TerminalID, entity.FormatAmount(report.Available[o.TerminalID]))
	}
}

func init() { //nolint:gochecknoinits
	flags := simulateCmd.Flags()
	flags.StringVar(&sim.op, "op", opWithdraw, "operation to run on every terminal: withdraw or deposit")
	flags.StringVar(&sim.accountID, "account", "", "account id on the inserted card")
	flags.StringVar(&sim.pin, "pin", "", "PIN entered at every terminal")
	flags.StringVar(&sim.amount, "amount", "", "amount in major units, e.g. 7.00")
	flags.IntVar(&sim.terminals, "terminals", 0, "number of configured terminals to use (0 for all)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "discard service logs")
	_ = simulateCmd.MarkFlagRequired("account")
	_ = simulateCmd.MarkFlagRequired("pin")
	_ = simulateCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(simulateCmd)
}
