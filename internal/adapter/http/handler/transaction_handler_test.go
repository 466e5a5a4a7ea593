package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/ledger/internal/adapter/http/dto"
	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/usecase"
)

type transactionServiceStub struct {
	submitFn func(ctx context.Context, input usecase.SubmitTransactionInput) (*domain.Transaction, error)
	getFn    func(ctx context.Context, id string) (*domain.Transaction, error)
	listFn   func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

func (s *transactionServiceStub) SubmitTransaction(ctx context.Context, input usecase.SubmitTransactionInput) (*domain.Transaction, error) {
	return s.submitFn(ctx, input)
}

func (s *transactionServiceStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func (s *transactionServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
	return s.listFn(ctx, input)
}

// echoTransaction commits the proposal as-is, numbering entries without ids.
func echoTransaction(ctx context.Context, input usecase.SubmitTransactionInput) (*domain.Transaction, error) {
	n := 0
	return domain.NewTransaction(domain.TransactionProposal{
		ID:      input.ID,
		Name:    input.Name,
		Entries: input.Entries,
	}, func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), nil
}

func TestTransactionHandler_Submit_Success(t *testing.T) {
	var captured usecase.SubmitTransactionInput
	handler := NewTransactionHandler(&transactionServiceStub{
		submitFn: func(ctx context.Context, input usecase.SubmitTransactionInput) (*domain.Transaction, error) {
			captured = input
			return echoTransaction(ctx, input)
		},
	})

	body := bytes.NewBufferString(`{
		"id": "t1",
		"name": "rent",
		"entries": [
			{"id": "e1", "account_id": "cash", "amount": 100, "direction": "credit"},
			{"account_id": "expenses", "amount": "100", "direction": "debit"}
		]
	}`)
	rec := httptest.NewRecorder()
	handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/transactions", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(captured.Entries) != 2 || captured.Entries[1].AccountID != "expenses" {
		t.Fatalf("unexpected input: %+v", captured)
	}
	if !captured.Entries[1].Amount.Equal(domain.NewAmount(100)) {
		t.Fatalf("expected quoted amount to decode, got %s", captured.Entries[1].Amount)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "t1" || resp.Entries[0].ID != "e1" || resp.Entries[1].ID != "gen-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Entries[1].TransactionID != "t1" {
		t.Fatalf("expected entries to refer to their transaction, got %+v", resp.Entries[1])
	}
}

func TestTransactionHandler_Submit_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		ids    []string
	}{
		{
			name:   "insufficient funds",
			err:    domain.NewInsufficientFundsError([]string{"cash"}),
			status: http.StatusBadRequest,
			code:   "insufficient_funds",
			ids:    []string{"cash"},
		},
		{
			name:   "unbalanced",
			err:    domain.NewUnbalancedTransactionError(domain.NewAmount(10), domain.NewAmount(9)),
			status: http.StatusBadRequest,
			code:   "unbalanced_transaction",
		},
		{
			name:   "missing accounts",
			err:    domain.NewAccountsNotFoundError([]string{"x", "y"}),
			status: http.StatusNotFound,
			code:   "entity_not_found",
			ids:    []string{"x", "y"},
		},
		{
			name:   "duplicate transaction",
			err:    domain.NewAlreadyExistsError(domain.EntityTransaction, "t1"),
			status: http.StatusConflict,
			code:   "entity_already_exists",
			ids:    []string{"t1"},
		},
		{
			name:   "lock conflict",
			err:    fmt.Errorf("%w: lock accounts", domain.ErrConcurrencyConflict),
			status: http.StatusConflict,
			code:   "concurrency_conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(&transactionServiceStub{
				submitFn: func(ctx context.Context, input usecase.SubmitTransactionInput) (*domain.Transaction, error) {
					return nil, tt.err
				},
			})

			body := bytes.NewBufferString(`{"entries":[{"account_id":"a","amount":1,"direction":"debit"}]}`)
			rec := httptest.NewRecorder()
			handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/transactions", body))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}

			var resp dto.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.code {
				t.Fatalf("expected code %q, got %q", tt.code, resp.Code)
			}
			if len(resp.IDs) != len(tt.ids) {
				t.Fatalf("expected ids %v, got %v", tt.ids, resp.IDs)
			}
			for i := range tt.ids {
				if resp.IDs[i] != tt.ids[i] {
					t.Fatalf("expected ids %v, got %v", tt.ids, resp.IDs)
				}
			}
		})
	}
}

func TestTransactionHandler_Submit_BadAmountNeverReachesService(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		submitFn: func(ctx context.Context, input usecase.SubmitTransactionInput) (*domain.Transaction, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	})

	body := bytes.NewBufferString(`{"entries":[{"account_id":"a","amount":1.5,"direction":"debit"}]}`)
	rec := httptest.NewRecorder()
	handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/transactions", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"code":"invalid_amount"`)) {
		t.Fatalf("expected invalid_amount code, got %s", rec.Body.String())
	}
}

func TestTransactionHandler_GetAndList(t *testing.T) {
	stored, _ := echoTransaction(context.Background(), usecase.SubmitTransactionInput{
		ID: "t1",
		Entries: []domain.EntryProposal{
			{ID: "e1", AccountID: "a", Amount: domain.NewAmount(3), Direction: domain.DirectionDebit},
			{ID: "e2", AccountID: "b", Amount: domain.NewAmount(3), Direction: domain.DirectionCredit},
		},
	})

	var listInput usecase.ListTransactionsInput
	handler := NewTransactionHandler(&transactionServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
			if id == stored.ID {
				return stored, nil
			}
			return nil, domain.NewNotFoundError(domain.EntityTransaction, id)
		},
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
			listInput = input
			return []*domain.Transaction{stored}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Get(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/transactions/t1", nil), "id", "t1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Get(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/transactions/nope", nil), "id", "nope"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if listInput.Limit != domain.DefaultPageLimit || listInput.Offset != 0 {
		t.Fatalf("expected default pagination, got %+v", listInput)
	}

	var resp dto.ListTransactionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || len(resp.Transactions[0].Entries) != 2 {
		t.Fatalf("unexpected list: %+v", resp)
	}
}
