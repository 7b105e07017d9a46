package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "market-radar",
	Short: "Market signal radar for tracked B2B accounts",
	Long: "Searches the web for capex, new-product, hiring and supply-chain news about tracked companies, " +
		"verifies and scores each hit, and stores ranked signals per company.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
