package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/store"
)

var companiesCSVPath string

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage tracked companies",
}

var companiesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import or update companies from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		f, err := os.Open(companiesCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close() //nolint:errcheck

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := importCompanies(ctx, st, f)
		if err != nil {
			return err
		}
		zap.L().Info("import complete",
			zap.Int64("companies", n),
			zap.String("csv", companiesCSVPath),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d companies\n", n)
		return nil
	},
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		companies, err := st.ListCompanies(ctx)
		if err != nil {
			return eris.Wrap(err, "list companies")
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(companies)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSEGMENT\tREGION\tTIER")
		for _, c := range companies {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Segment, c.Region, c.PriorityTier)
		}
		return tw.Flush()
	},
}

// importCompanies decodes CSV rows (id, company_name, segment, region, ...)
// and upserts them by id.
func importCompanies(ctx context.Context, st store.Store, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, eris.Wrap(err, "read csv")
	}
	var companies []model.Company
	if err := csvutil.Unmarshal(data, &companies); err != nil {
		return 0, eris.Wrap(err, "decode csv")
	}
	for i := range companies {
		c := &companies[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Segment = model.Segment(strings.ToUpper(strings.TrimSpace(string(c.Segment))))
		c.Region = strings.TrimSpace(c.Region)
		if c.Source == "" {
			c.Source = "csv"
		}
	}
	if len(companies) == 0 {
		return 0, nil
	}
	n, err := st.UpsertCompanies(ctx, companies)
	if err != nil {
		return 0, eris.Wrap(err, "upsert companies")
	}
	return n, nil
}

func init() {
	companiesImportCmd.Flags().StringVar(&companiesCSVPath, "csv", "", "path to CSV file (required)")
	_ = companiesImportCmd.MarkFlagRequired("csv")
	companiesCmd.AddCommand(companiesImportCmd, companiesListCmd)
	rootCmd.AddCommand(companiesCmd)
}
