package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/vcprove/formatter"
	"github.com/gnolang/vcprove/internal"
	"github.com/gnolang/vcprove/internal/prover"
	"github.com/gnolang/vcprove/prove"
)

var (
	vcTimeout       time.Duration
	tries           int
	jobs            int
	allowNewSymbols bool
	cacheDir        string
	noProofFile     bool
	proveJSONOutput bool
	outPath         string
	metricsOut      string
	showDiff        bool
	noProgress      bool
)

var proveCmd = &cobra.Command{
	Use:   "prove [paths...]",
	Short: "Prove the VCs of module files or directories",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		config, err := loadConfig(cmd)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.String("config", cfgFile), zap.Error(err))
		}

		reg := prometheus.NewRegistry()
		opts := []internal.EngineOption{internal.WithMetrics(prover.NewMetrics(reg))}
		if !proveJSONOutput && !noProgress {
			opts = append(opts, internal.WithListener(prove.NewProgressListener(os.Stderr)))
		}
		engine, err := prove.New(logger, config, opts...)
		if err != nil {
			logger.Fatal("Failed to initialize proof engine", zap.Error(err))
		}

		failed, err := runProveProcess(ctx, logger, engine, args, os.Stdout, outputOptions{
			json:    proveJSONOutput,
			outPath: outPath,
			diff:    showDiff,
		})
		if metricsOut != "" {
			if err := prometheus.WriteToTextfile(metricsOut, reg); err != nil {
				logger.Error("Error writing metrics", zap.String("file", metricsOut), zap.Error(err))
			}
		}
		if err := engine.Close(); err != nil {
			logger.Error("Error closing proof engine", zap.Error(err))
		}
		if err != nil || failed {
			os.Exit(1)
		}
	},
}

func init() {
	proveCmd.Flags().DurationVar(&vcTimeout, "vc-timeout", prover.DefaultTimeout, "Time budget of a single VC")
	proveCmd.Flags().IntVar(&tries, "tries", prover.DefaultTries, "Skip the remaining VCs after this many are not proved (-1 never skips)")
	proveCmd.Flags().IntVar(&jobs, "jobs", 1, "Number of VCs proved at once")
	proveCmd.Flags().BoolVar(&allowNewSymbols, "allow-new-symbols", false, "Let theorems introduce symbols that are not in the VC")
	proveCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory of the proof cache (disabled when empty)")
	proveCmd.Flags().BoolVar(&noProofFile, "no-proof-file", false, "Do not write .proof files")
	proveCmd.Flags().BoolVar(&proveJSONOutput, "json", false, "Output results in JSON format")
	proveCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	proveCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus metrics of the run to this file")
	proveCmd.Flags().BoolVar(&showDiff, "diff", false, "Show how each proof file changed since the last run")
	proveCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not draw a progress bar")
}

// loadConfig reads the configuration file and applies the flags that were
// set explicitly.
func loadConfig(cmd *cobra.Command) (prove.Config, error) {
	config, err := prove.LoadConfig(cfgFile)
	if err != nil {
		return config, err
	}

	flags := cmd.Flags()
	if flags.Changed("vc-timeout") {
		config.Timeout = vcTimeout
	}
	if flags.Changed("tries") {
		config.Tries = tries
	}
	if flags.Changed("jobs") {
		config.Jobs = jobs
	}
	if flags.Changed("allow-new-symbols") {
		config.AllowNewSymbols = allowNewSymbols
	}
	if flags.Changed("cache-dir") {
		config.CacheDir = cacheDir
	}
	if flags.Changed("no-proof-file") {
		config.NoProofFile = noProofFile
	}
	return config, nil
}

type outputOptions struct {
	json    bool
	outPath string
	diff    bool
}

// runProveProcess proves paths and prints the reports. It reports whether
// some VC was left unproved.
func runProveProcess(
	ctx context.Context,
	logger *zap.Logger,
	engine prove.ProverEngine,
	paths []string,
	w io.Writer,
	opts outputOptions,
) (bool, error) {
	reports, err := prove.ProcessFiles(ctx, logger, engine, paths, prove.ProcessFile)
	if err != nil {
		logger.Error("Error processing files", zap.Error(err))
	}

	if printErr := printReports(w, reports, opts); printErr != nil {
		logger.Error("Error printing results", zap.Error(printErr))
		if err == nil {
			err = printErr
		}
	}

	for _, report := range reports {
		if report.Failed() {
			return true, err
		}
	}
	return false, err
}

func printReports(w io.Writer, reports []*internal.Report, opts outputOptions) error {
	if opts.json {
		if reports == nil {
			reports = []*internal.Report{}
		}
		d, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshalling results to JSON: %w", err)
		}
		if opts.outPath == "" {
			_, err = fmt.Fprintln(w, string(d))
			return err
		}
		return os.WriteFile(opts.outPath, d, 0o644)
	}

	// text output
	for _, report := range reports {
		fmt.Fprint(w, formatter.FormatReport(report))
		if !opts.diff {
			continue
		}
		if diff := formatter.ProofDiff(report.Previous, report.Proof); diff != "" {
			fmt.Fprintf(w, "proof of %s changed:\n%s", report.Module, diff)
		}
	}
	fmt.Fprint(w, formatter.FormatTotals(formatter.CountResults(reports)))
	return nil
}
