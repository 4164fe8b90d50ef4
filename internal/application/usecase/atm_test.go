package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atmnet.com/internal/application/usecase"
	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/cardreader"
	"atmnet.com/internal/infrastructure/logger"
	"atmnet.com/internal/infrastructure/repository"
)

type bank struct {
	ledger    *repository.InMemoryLedger
	reservoir *repository.InMemoryCashReservoir
}

func newBank(t *testing.T, cash int64) bank {
	t.Helper()
	nop := logger.NewNopLogger()

	ledger, err := repository.NewInMemoryLedger([]entity.Account{
		{ID: "12345", PIN: "1111", Balance: 1000},
		{ID: "67890", PIN: "2222", Balance: 500},
	}, nop)
	require.NoError(t, err)

	reservoir, err := repository.NewInMemoryCashReservoir(cash, nop)
	require.NoError(t, err)

	return bank{ledger: ledger, reservoir: reservoir}
}

func (b bank) terminal(id string, ledger port.Ledger) *usecase.Terminal {
	if ledger == nil {
		ledger = b.ledger
	}
	nop := logger.NewNopLogger()
	coordinator := usecase.NewTransactionCoordinator(ledger, b.reservoir, nop)
	return usecase.NewTerminal(id, cardreader.NewInMemoryCardReader(), ledger, coordinator, nop)
}

func (b bank) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	balance, err := b.ledger.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return balance
}

func login(t *testing.T, term *usecase.Terminal, accountID, pin string) {
	t.Helper()
	ctx := context.Background()
	term.InsertCard(ctx, accountID)
	require.True(t, term.EnterPin(ctx, pin), "PIN rejected for %s", accountID)
}

func TestATM_InvalidPin(t *testing.T) {
	b := newBank(t, 1000)
	term := b.terminal("atm-1", nil)
	ctx := context.Background()

	term.InsertCard(ctx, "12345")
	assert.False(t, term.EnterPin(ctx, "invalid password"))

	ok, err := term.Withdraw(ctx, 100)
	assert.False(t, ok)
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)

	_, err = term.CheckBalance(ctx)
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)

	ok, err = term.Deposit(ctx, 100)
	assert.False(t, ok)
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)

	assert.Equal(t, int64(1000), b.balance(t, "12345"))
	assert.Equal(t, int64(1000), b.reservoir.Available(ctx))
}

func TestATM_OverWithdrawal(t *testing.T) {
	b := newBank(t, 1000)
	term := b.terminal("atm-1", nil)
	login(t, term, "67890", "2222")

	ok, err := term.Withdraw(context.Background(), 100000)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(500), b.balance(t, "67890"))
	assert.Equal(t, int64(1000), b.reservoir.Available(context.Background()))
}

func TestATM_OverReservoirWithdrawal(t *testing.T) {
	b := newBank(t, 100)
	term := b.terminal("atm-1", nil)
	login(t, term, "12345", "1111")

	ok, err := term.Withdraw(context.Background(), 200)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1000), b.balance(t, "12345"))
	assert.Equal(t, int64(100), b.reservoir.Available(context.Background()))
}

func TestATM_InvalidAmounts(t *testing.T) {
	b := newBank(t, 1000)
	term := b.terminal("atm-1", nil)
	login(t, term, "12345", "1111")
	ctx := context.Background()

	for _, amount := range []int64{0, -100} {
		ok, err := term.Withdraw(ctx, amount)
		assert.False(t, ok)
		assert.ErrorIs(t, err, entity.ErrInvalidAmount)

		ok, err = term.Deposit(ctx, amount)
		assert.False(t, ok)
		assert.ErrorIs(t, err, entity.ErrInvalidAmount)
	}

	assert.Equal(t, int64(1000), b.balance(t, "12345"))
	assert.Equal(t, int64(1000), b.reservoir.Available(ctx))
}

func TestATM_DepositAndWithdraw(t *testing.T) {
	b := newBank(t, 1000)
	term := b.terminal("atm-1", nil)
	login(t, term, "67890", "2222")
	ctx := context.Background()

	ok, err := term.Deposit(ctx, 250)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = term.Withdraw(ctx, 750)
	require.NoError(t, err)
	require.True(t, ok)

	balance, err := term.CheckBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Equal(t, int64(500), b.reservoir.Available(ctx))
}

func TestATM_CheckBalanceIsIdempotent(t *testing.T) {
	b := newBank(t, 1000)
	term := b.terminal("atm-1", nil)
	login(t, term, "12345", "1111")
	ctx := context.Background()

	first, err := term.CheckBalance(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := term.CheckBalance(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestATM_ConcurrentWithdrawals(t *testing.T) {
	b := newBank(t, 1000)
	terminals := []*usecase.Terminal{b.terminal("atm-1", nil), b.terminal("atm-2", nil)}

	results := make([]bool, len(terminals))
	var wg sync.WaitGroup
	for i, term := range terminals {
		i, term := i, term
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			term.InsertCard(ctx, "12345")
			if !term.EnterPin(ctx, "1111") {
				t.Errorf("%s: PIN rejected", term.ID())
				return
			}
			ok, err := term.Withdraw(ctx, 700)
			if err != nil {
				t.Errorf("%s: Withdraw() error = %v", term.ID(), err)
			}
			results[i] = ok
			term.EjectCard(ctx)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []bool{true, false}, results)
	assert.Equal(t, int64(300), b.balance(t, "12345"))
	assert.Equal(t, int64(300), b.reservoir.Available(context.Background()))
}

func TestATM_ConcurrentDeposits(t *testing.T) {
	b := newBank(t, 1000)
	terminals := []*usecase.Terminal{b.terminal("atm-1", nil), b.terminal("atm-2", nil)}
	amounts := []int64{200, 300}

	results := make([]bool, len(terminals))
	var wg sync.WaitGroup
	for i, term := range terminals {
		i, term := i, term
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			term.InsertCard(ctx, "67890")
			if !term.EnterPin(ctx, "2222") {
				t.Errorf("%s: PIN rejected", term.ID())
				return
			}
			ok, err := term.Deposit(ctx, amounts[i])
			if err != nil {
				t.Errorf("%s: Deposit() error = %v", term.ID(), err)
			}
			results[i] = ok
		}()
	}
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	assert.Equal(t, int64(1000), b.balance(t, "67890"))
	assert.Equal(t, int64(1500), b.reservoir.Available(context.Background()))
}

func TestATM_ConcurrentWithdrawalsOneCompensates(t *testing.T) {
	// Both ledger debits fit the balance; the reservoir covers only one of them.
	b := newBank(t, 600)
	terminals := []*usecase.Terminal{b.terminal("atm-1", nil), b.terminal("atm-2", nil)}

	results := make([]bool, len(terminals))
	var wg sync.WaitGroup
	for i, term := range terminals {
		i, term := i, term
		login(t, term, "12345", "1111")
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := term.Withdraw(context.Background(), 500)
			if err != nil {
				t.Errorf("%s: Withdraw() error = %v", term.ID(), err)
			}
			results[i] = ok
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []bool{true, false}, results)
	assert.Equal(t, int64(500), b.balance(t, "12345"))
	assert.Equal(t, int64(100), b.reservoir.Available(context.Background()))
}

func TestATM_ManyTerminalsNeverOverdraw(t *testing.T) {
	b := newBank(t, 100000)
	const n = 25

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		term := b.terminal("atm", nil)
		login(t, term, "12345", "1111")
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := term.Withdraw(context.Background(), 90)
			if err != nil {
				t.Errorf("Withdraw() error = %v", err)
			}
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 11, succeeded)
	assert.Equal(t, int64(10), b.balance(t, "12345"))
	assert.Equal(t, int64(100000-11*90), b.reservoir.Available(context.Background()))
}

// gatedLedger blocks compensating credits until released, holding a
// withdrawal inside the window between its failed dispense and its rollback.
type gatedLedger struct {
	port.Ledger
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLedger) Credit(ctx context.Context, accountID string, amount int64) error {
	g.entered <- struct{}{}
	<-g.release
	return g.Ledger.Credit(ctx, accountID, amount)
}

func TestATM_CompensationWindowIsObservable(t *testing.T) {
	b := newBank(t, 700)
	gated := &gatedLedger{
		Ledger:  b.ledger,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	slow := b.terminal("atm-1", gated)
	other := b.terminal("atm-2", nil)
	login(t, slow, "12345", "1111")
	login(t, other, "12345", "1111")
	ctx := context.Background()

	done := make(chan bool)
	go func() {
		ok, err := slow.Withdraw(ctx, 800)
		if err != nil {
			t.Errorf("Withdraw() error = %v", err)
		}
		done <- ok
	}()

	<-gated.entered

	// The debit is committed and not yet reversed.
	balance, err := other.CheckBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)

	// Balance and cash would both cover this once the debit is reversed,
	// but the lowered balance refuses it meanwhile.
	ok, err := other.Withdraw(ctx, 300)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(200), b.balance(t, "12345"))
	assert.Equal(t, int64(700), b.reservoir.Available(ctx))

	close(gated.release)
	assert.False(t, <-done)

	assert.Equal(t, int64(1000), b.balance(t, "12345"))
	assert.Equal(t, int64(700), b.reservoir.Available(ctx))
}
