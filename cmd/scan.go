package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/store"
)

var (
	scanCompanyIDs   string
	scanLookbackDays int
	scanMaxResults   int
	scanAll          bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan tracked companies for new market signals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "scan")
		if err != nil {
			return err
		}
		defer env.Close()

		ids, err := selectCompanyIDs(ctx, env.Store, scanCompanyIDs, scanAll)
		if err != nil {
			return err
		}

		res, err := env.Scanner.Scan(ctx, model.ScanRequest{
			CompanyIDs:           ids,
			LookbackDays:         scanLookbackDays,
			MaxResultsPerCompany: scanMaxResults,
		})
		if err != nil {
			return err
		}
		return printScanResult(cmd, res)
	},
}

func printScanResult(cmd *cobra.Command, res *model.ScanResult) error {
	out := cmd.OutOrStdout()
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(out, "job %s: %d companies, %d signals stored, est. $%.4f\n",
		res.JobID, res.CompaniesProcessed, res.RecordsCreatedOrUpdated, res.EstimatedCostUSD)
	reasons := make([]string, 0, len(res.Rejections))
	for r := range res.Rejections {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(out, "  rejected %-26s %d\n", r, res.Rejections[r])
	}
	return nil
}

// selectCompanyIDs resolves --company-ids and --all. An empty store under
// --all yields no ids, which scans nothing.
func selectCompanyIDs(ctx context.Context, st store.Store, raw string, all bool) ([]int64, error) {
	if all {
		companies, err := st.ListCompanies(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "list companies")
		}
		ids := make([]int64, 0, len(companies))
		for _, c := range companies {
			ids = append(ids, c.ID)
		}
		return ids, nil
	}
	ids, err := parseIDs(raw)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, eris.New("no companies selected (use --company-ids or --all)")
	}
	return ids, nil
}

// parseIDs reads a comma-separated list of positive company ids.
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, eris.Errorf("invalid company id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var outputJSON bool

func init() {
	scanCmd.Flags().StringVar(&scanCompanyIDs, "company-ids", "", "comma-separated company ids")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "scan every stored company")
	scanCmd.Flags().IntVar(&scanLookbackDays, "lookback-days", 0, "freshness window in days (default from config)")
	scanCmd.Flags().IntVar(&scanMaxResults, "max-results", 0, "accepted signals per company (default from config)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print JSON output")
	rootCmd.AddCommand(scanCmd)
}
