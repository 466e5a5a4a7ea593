package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/iho/ledger/internal/adapter/repository/memory"
	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

type seqIDGenerator struct {
	n atomic.Int64
}

func (g *seqIDGenerator) Generate() string {
	return fmt.Sprintf("gen-%04d", g.n.Add(1))
}

type testLedger struct {
	store        *memory.Store
	accounts     *usecase.AccountUseCase
	transactions *usecase.TransactionUseCase
	entries      *usecase.EntryUseCase
	ledger       *usecase.LedgerUseCase
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()

	store := memory.New()
	txManager := memory.NewTxManager(store)
	accountRepo := memory.NewAccountRepository(store)
	entryRepo := memory.NewEntryRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	idGen := &seqIDGenerator{}

	return &testLedger{
		store:    store,
		accounts: usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, nil, idGen, nil),
		transactions: usecase.NewTransactionUseCase(
			txManager,
			accountRepo,
			memory.NewTransactionRepository(store),
			entryRepo,
			outboxRepo,
			idGen,
			nil,
			nil,
		),
		entries: usecase.NewEntryUseCase(accountRepo, entryRepo),
		ledger:  usecase.NewLedgerUseCase(memory.NewLedgerRepository(store), nil),
	}
}

func (l *testLedger) createAccount(t *testing.T, id string, dir domain.Direction) {
	t.Helper()

	if _, err := l.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{ID: id, Direction: dir}); err != nil {
		t.Fatalf("create account %s: %v", id, err)
	}
}

func (l *testLedger) balance(t *testing.T, id string) int64 {
	t.Helper()

	a, err := l.accounts.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return a.Balance.Decimal().IntPart()
}

func (l *testLedger) submit(entries ...domain.EntryProposal) (*domain.Transaction, error) {
	return l.transactions.SubmitTransaction(context.Background(), usecase.SubmitTransactionInput{Entries: entries})
}

func debit(accountID string, amount int64) domain.EntryProposal {
	return domain.EntryProposal{AccountID: accountID, Amount: domain.NewAmount(amount), Direction: domain.DirectionDebit}
}

func credit(accountID string, amount int64) domain.EntryProposal {
	return domain.EntryProposal{AccountID: accountID, Amount: domain.NewAmount(amount), Direction: domain.DirectionCredit}
}

func withID(e domain.EntryProposal, id string) domain.EntryProposal {
	e.ID = id
	return e
}
