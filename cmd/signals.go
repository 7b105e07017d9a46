package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/store"
)

var (
	signalsCompanyID int64
	signalsLimit     int
	signalsOrderBy   string
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Inspect and manage stored signals",
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored signals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		order, err := parseOrderBy(signalsOrderBy)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		signals, err := st.ListSignals(ctx, store.SignalFilter{
			CompanyID: signalsCompanyID,
			OrderBy:   order,
			Limit:     signalsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list signals")
		}
		return printSignals(cmd, signals)
	},
}

var signalsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a signal by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return eris.Errorf("invalid signal id %q", args[0])
		}
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		deleted, err := st.DeleteSignal(ctx, id)
		if err != nil {
			return eris.Wrap(err, "delete signal")
		}
		if deleted {
			fmt.Fprintf(cmd.OutOrStdout(), "deleted signal %d\n", id)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "signal %d already missing\n", id)
		}
		return nil
	},
}

// parseOrderBy reads "field[:asc|desc],..." into sort keys. Fields are
// checked by the store.
func parseOrderBy(raw string) ([]store.SortKey, error) {
	var keys []store.SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, _ := strings.Cut(part, ":")
		key := store.SortKey{Field: strings.TrimSpace(field), Desc: true}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "desc":
		case "asc":
			key.Desc = false
		default:
			return nil, eris.Errorf("invalid sort direction %q", dir)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func printSignals(cmd *cobra.Command, signals []model.Signal) error {
	out := cmd.OutOrStdout()
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(signals)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tTYPE\tSTRENGTH\tPUBLISHED\tSOURCE\tSUMMARY")
	for _, s := range signals {
		published := "-"
		if s.SourcePublishedAt != nil {
			published = s.SourcePublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\t%s\t%s\n",
			s.ID, s.CompanyID, s.Type, s.Strength, published, s.SourceName, preview(s.Summary, 60))
	}
	return tw.Flush()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func init() {
	signalsListCmd.Flags().Int64Var(&signalsCompanyID, "company-id", 0, "only this company")
	signalsListCmd.Flags().IntVar(&signalsLimit, "limit", 50, "maximum rows (0 for all)")
	signalsListCmd.Flags().StringVar(&signalsOrderBy, "order-by", "", "sort keys, e.g. strength:desc,event_date")
	signalsCmd.AddCommand(signalsListCmd, signalsDeleteCmd)
	rootCmd.AddCommand(signalsCmd)
}
