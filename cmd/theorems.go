package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/vcprove/internal"
	"github.com/gnolang/vcprove/internal/prover"
	"github.com/gnolang/vcprove/prove"
)

var theoremsCmd = &cobra.Command{
	Use:   "theorems <file>",
	Short: "List the rewrite rules the prover derives for a module",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := prove.LoadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.String("config", cfgFile), zap.Error(err))
		}
		if err := listTheorems(os.Stdout, logger, args[0], config); err != nil {
			logger.Error("Error listing theorems", zap.String("file", args[0]), zap.Error(err))
			os.Exit(1)
		}
	},
}

func listTheorems(w io.Writer, logger *zap.Logger, path string, config prove.Config) error {
	ec := config.EngineConfig()
	table := internal.NewSymbolTable(ec.Imports)
	module, err := internal.LoadModule(table, path)
	if err != nil {
		return err
	}

	p, err := prover.New(module.Name, nil, table, ec.Prover, prover.WithLogger(logger))
	if err != nil {
		return err
	}

	rules := p.Rules()
	fmt.Fprintf(w, "%d rules for %s\n\n", len(rules), module.Name)
	for _, rule := range rules {
		fmt.Fprintf(w, "%s\n\n", rule)
	}
	fmt.Fprintf(w, "non-quantified symbols: %s\n", strings.Join(p.NonQuantifiedSymbols(), " "))
	return nil
}
