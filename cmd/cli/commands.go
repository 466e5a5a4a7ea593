package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/iho/ledger/internal/adapter/http/dto"
	"github.com/iho/ledger/internal/domain"
)

type options struct {
	baseURL string
	timeout time.Duration
	output  string
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "ledger-cli",
		Short:         "Ledger CLI tool",
		Long:          `A command line interface for interacting with the double-entry ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")

	rootCmd.AddCommand(accountsCmd(opts), transactionsCmd(opts), ledgerCmd(opts))

	return rootCmd
}

func accountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	var id, name string
	createCmd := &cobra.Command{
		Use:   "create <debit|credit>",
		Short: "Open an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, err := domain.ParseDirection(args[0])
			if err != nil {
				return err
			}

			var account dto.AccountResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{
				ID:        id,
				Name:      name,
				Direction: direction,
			}, &account); err != nil {
				return err
			}

			return printAccounts(cmd.OutOrStdout(), opts.output, &account)
		},
	}
	createCmd.Flags().StringVar(&id, "id", "", "Account ID (generated when empty)")
	createCmd.Flags().StringVar(&name, "name", "", "Account name")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account and its balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account dto.AccountResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, &account); err != nil {
				return err
			}
			return printAccounts(cmd.OutOrStdout(), opts.output, &account)
		},
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListAccountsResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, pagePath("/api/v1/accounts", limit, offset), nil, &resp); err != nil {
				return err
			}
			return printAccounts(cmd.OutOrStdout(), opts.output, resp.Accounts...)
		},
	}
	addPageFlags(listCmd, &limit, &offset)

	entriesCmd := &cobra.Command{
		Use:   "entries <id>",
		Short: "List the entries posted to an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListEntriesResponse
			path := pagePath("/api/v1/accounts/"+url.PathEscape(args[0])+"/entries", limit, offset)
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), opts.output, resp.Entries)
		},
	}
	addPageFlags(entriesCmd, &limit, &offset)

	cmd.AddCommand(createCmd, getCmd, listCmd, entriesCmd)
	return cmd
}

func transactionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transaction operations",
	}

	var (
		id, name, idemKey string
		entries           []string
		retries           int
	)
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Post a balanced transaction",
		Example: `  ledger-cli transactions submit --entry cash:100:debit --entry revenue:100:credit
  ledger-cli transactions submit --id t-42 --retries 3 --entry a:5:credit --entry b:5:debit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.SubmitTransactionRequest{ID: id, Name: name}
			for _, raw := range entries {
				entry, err := parseEntry(raw)
				if err != nil {
					return err
				}
				req.Entries = append(req.Entries, entry)
			}

			ctx := withIdempotencyKey(cmd.Context(), idemKey)
			txn, err := submitWithRetry(ctx, opts.client(), req, retries)
			if err != nil {
				return err
			}

			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), txn)
			}
			return printTransaction(cmd.OutOrStdout(), txn)
		},
	}
	submitCmd.Flags().StringVar(&id, "id", "", "Transaction ID (generated when empty)")
	submitCmd.Flags().StringVar(&name, "name", "", "Transaction name")
	submitCmd.Flags().StringArrayVarP(&entries, "entry", "e", nil, "Entry as account:amount:direction (repeatable)")
	submitCmd.Flags().IntVar(&retries, "retries", 0, "Retries on a concurrency conflict")
	submitCmd.Flags().StringVar(&idemKey, "idempotency-key", "", "Idempotency-Key header value")
	_ = submitCmd.MarkFlagRequired("entry")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction and its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var txn dto.TransactionResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/transactions/"+url.PathEscape(args[0]), nil, &txn); err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), &txn)
			}
			return printTransaction(cmd.OutOrStdout(), &txn)
		},
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions in commit order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListTransactionsResponse
			if _, err := opts.client().do(cmd.Context(), http.MethodGet, pagePath("/api/v1/transactions", limit, offset), nil, &resp); err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENTRIES\tCREATED")
			for _, txn := range resp.Transactions {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", txn.ID, truncate(txn.Name, 30), len(txn.Entries), txn.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	addPageFlags(listCmd, &limit, &offset)

	cmd.AddCommand(submitCmd, getCmd, listCmd)
	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConsistency(cmd.Context(), opts.client(), cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(consistencyCmd)
	return cmd
}

// errInconsistent makes the process exit non-zero when the audit finds
// problems.
var errInconsistent = errors.New("ledger is inconsistent")

func checkConsistency(ctx context.Context, client *apiClient, out io.Writer) error {
	var report dto.ConsistencyResponse
	raw, err := client.do(ctx, http.MethodGet, "/api/v1/ledger/consistency", nil, &report)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		if jsonErr := json.Unmarshal(raw, &report); jsonErr != nil {
			return fmt.Errorf("failed to parse response: %w", jsonErr)
		}
		fmt.Fprintf(out, "Consistency check FAILED\n")
		fmt.Fprintf(out, "Unbalanced transactions: %s\n", joinOrNone(report.UnbalancedTransactions))
		fmt.Fprintf(out, "Negative accounts: %s\n", joinOrNone(report.NegativeAccounts))
		for _, d := range report.Drifts {
			fmt.Fprintf(out, "Drift: %s recorded %s computed %s\n", d.AccountID, d.Recorded, d.Computed)
		}
		return errInconsistent
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Consistency check PASSED\n")
	fmt.Fprintf(out, "Consistent: %v\n", report.Consistent)
	fmt.Fprintf(out, "Status: %s\n", report.Status)
	return nil
}

// submitWithRetry posts req, retrying with exponential backoff while the
// server reports a concurrency conflict. Every other failure is final.
func submitWithRetry(ctx context.Context, client *apiClient, req dto.SubmitTransactionRequest, retries int) (*dto.TransactionResponse, error) {
	var txn dto.TransactionResponse

	op := func() error {
		_, err := client.do(ctx, http.MethodPost, "/api/v1/transactions", req, &txn)
		if err == nil {
			return nil
		}

		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Body.Code == domain.ErrorKind(domain.ErrConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(retries, 0))), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	return &txn, nil
}

// parseEntry parses account:amount:direction. The account id may itself
// contain colons.
func parseEntry(raw string) (dto.EntryRequest, error) {
	dirAt := strings.LastIndex(raw, ":")
	if dirAt < 0 {
		return dto.EntryRequest{}, fmt.Errorf("invalid entry %q: want account:amount:direction", raw)
	}
	amountAt := strings.LastIndex(raw[:dirAt], ":")
	if amountAt <= 0 {
		return dto.EntryRequest{}, fmt.Errorf("invalid entry %q: want account:amount:direction", raw)
	}

	amount, err := domain.ParseAmount(raw[amountAt+1 : dirAt])
	if err != nil {
		return dto.EntryRequest{}, fmt.Errorf("invalid entry %q: %w", raw, err)
	}
	direction, err := domain.ParseDirection(raw[dirAt+1:])
	if err != nil {
		return dto.EntryRequest{}, fmt.Errorf("invalid entry %q: %w", raw, err)
	}

	return dto.EntryRequest{
		AccountID: raw[:amountAt],
		Amount:    amount,
		Direction: direction,
	}, nil
}

func addPageFlags(cmd *cobra.Command, limit, offset *int) {
	cmd.Flags().IntVar(limit, "limit", domain.DefaultPageLimit, "Page size")
	cmd.Flags().IntVar(offset, "offset", 0, "Page offset")
}

func pagePath(path string, limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return path + "?" + q.Encode()
}
