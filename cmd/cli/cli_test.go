package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iho/ledger/internal/adapter/http/dto"
	"github.com/iho/ledger/internal/domain"
)

func execute(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--url", serverURL}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, struct {
		A int `json:"a"`
	}{A: 1}))

	expected := "{\n  \"a\": 1\n}\n"
	if out.String() != expected {
		t.Fatalf("unexpected json output:\n%s", out.String())
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		raw       string
		account   string
		amount    int64
		direction domain.Direction
		wantErr   bool
	}{
		{raw: "cash:100:debit", account: "cash", amount: 100, direction: domain.DirectionDebit},
		{raw: "assets:bank:250:CREDIT", account: "assets:bank", amount: 250, direction: domain.DirectionCredit},
		{raw: "cash:1.5:debit", wantErr: true},
		{raw: "cash:100:sideways", wantErr: true},
		{raw: ":100:debit", wantErr: true},
		{raw: "cash", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			entry, err := parseEntry(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.account, entry.AccountID)
			require.True(t, entry.Amount.Equal(domain.NewAmount(tt.amount)))
			require.Equal(t, tt.direction, entry.Direction)
		})
	}
}

func TestSubmitSendsEntries(t *testing.T) {
	var got dto.SubmitTransactionRequest
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/transactions", r.URL.Path)
		key = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, dto.TransactionResponse{
			ID: "t1",
			Entries: []*dto.EntryResponse{
				{ID: "e1", AccountID: "cash", Amount: domain.NewAmount(5), Direction: domain.DirectionDebit},
				{ID: "e2", AccountID: "revenue", Amount: domain.NewAmount(5), Direction: domain.DirectionCredit},
			},
		})
	}))
	defer srv.Close()

	out, err := execute(t, srv.URL, "transactions", "submit",
		"--id", "t1", "--idempotency-key", "abc",
		"--entry", "cash:5:debit", "-e", "revenue:5:credit")
	require.NoError(t, err)

	require.Equal(t, "t1", got.ID)
	require.Len(t, got.Entries, 2)
	require.Equal(t, "revenue", got.Entries[1].AccountID)
	require.Equal(t, "abc", key)
	require.Contains(t, out, "Transaction t1")
	require.Contains(t, out, "revenue")
}

func TestSubmitRetriesConflicts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "transaction rejected", Code: "concurrency_conflict"})
			return
		}
		writeJSON(w, http.StatusCreated, dto.TransactionResponse{ID: "t1"})
	}))
	defer srv.Close()

	_, err := execute(t, srv.URL, "transactions", "submit", "--retries", "5", "-e", "a:1:debit", "-e", "b:1:credit")
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestSubmitDoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error:   "transaction rejected",
			Message: "A transaction with the ID 't1' already exists.",
			Code:    "entity_already_exists",
			IDs:     []string{"t1"},
		})
	}))
	defer srv.Close()

	_, err := execute(t, srv.URL, "transactions", "submit", "--retries", "5", "-e", "a:1:debit", "-e", "b:1:credit")
	require.Error(t, err)
	require.Contains(t, err.Error(), "entity_already_exists")
	require.Contains(t, err.Error(), "[t1]")
	require.Equal(t, int32(1), calls.Load())
}

func TestAccountsCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/accounts":
			var req dto.CreateAccountRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusCreated, dto.AccountResponse{ID: req.ID, Direction: req.Direction})
		case r.URL.Path == "/api/v1/accounts":
			require.Equal(t, "2", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
				Accounts: []*dto.AccountResponse{
					{ID: "cash", Direction: domain.DirectionDebit, Balance: domain.NewAmount(12)},
				},
				Count: 1,
			})
		case r.URL.Path == "/api/v1/accounts/ghost":
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
				Error:   "failed to get account",
				Message: "The account with ID 'ghost' was not found.",
				Code:    "entity_not_found",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := execute(t, srv.URL, "accounts", "create", "credit", "--id", "equity")
	require.NoError(t, err)
	require.Contains(t, out, "equity")
	require.Contains(t, out, "credit")

	out, err = execute(t, srv.URL, "accounts", "list", "--limit", "2")
	require.NoError(t, err)
	require.Contains(t, out, "cash")
	require.Contains(t, out, "12")

	_, err = execute(t, srv.URL, "accounts", "get", "ghost")
	require.Error(t, err)
	require.Contains(t, err.Error(), "was not found")

	_, err = execute(t, srv.URL, "accounts", "create", "sideways")
	require.ErrorIs(t, err, domain.ErrInvalidDirection)
}

func TestLedgerConsistency(t *testing.T) {
	var inconsistent atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !inconsistent.Load() {
			writeJSON(w, http.StatusOK, dto.ConsistencyResponse{Status: "consistent", Consistent: true})
			return
		}
		writeJSON(w, http.StatusConflict, dto.ConsistencyResponse{
			Status:           "inconsistent",
			NegativeAccounts: []string{"cash"},
			Drifts: []dto.BalanceDriftResponse{
				{AccountID: "cash", Recorded: domain.NewAmount(-1), Computed: domain.NewAmount(0)},
			},
		})
	}))
	defer srv.Close()

	out, err := execute(t, srv.URL, "ledger", "consistency")
	require.NoError(t, err)
	require.Contains(t, out, "PASSED")

	inconsistent.Store(true)
	out, err = execute(t, srv.URL, "ledger", "consistency")
	require.ErrorIs(t, err, errInconsistent)
	require.Contains(t, out, "FAILED")
	require.Contains(t, out, "Negative accounts: cash")
	require.True(t, strings.Contains(out, "Drift: cash recorded -1 computed 0"), out)
}
