package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iho/ledger/internal/adapter/http/dto"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAccounts(out io.Writer, format string, accounts ...*dto.AccountResponse) error {
	if format == "json" {
		if len(accounts) == 1 {
			return printJSON(out, accounts[0])
		}
		return printJSON(out, accounts)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDIRECTION\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, truncate(a.Name, 30), a.Direction, a.Balance)
	}
	return w.Flush()
}

func printEntries(out io.Writer, format string, entries []*dto.EntryResponse) error {
	if format == "json" {
		return printJSON(out, entries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRANSACTION\tDIRECTION\tAMOUNT\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.TransactionID, e.Direction, e.Amount, e.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func printTransaction(out io.Writer, txn *dto.TransactionResponse) error {
	fmt.Fprintf(out, "Transaction %s", txn.ID)
	if txn.Name != "" {
		fmt.Fprintf(out, " (%s)", txn.Name)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tACCOUNT\tDIRECTION\tAMOUNT")
	for _, e := range txn.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.AccountID, e.Direction, e.Amount)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
