package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/vcprove/formatter"
	"github.com/gnolang/vcprove/internal"
	"github.com/gnolang/vcprove/prove"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Prove module files again whenever they change",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"."}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		config, err := prove.LoadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.String("config", cfgFile), zap.Error(err))
		}
		engine, err := prove.New(logger, config)
		if err != nil {
			logger.Fatal("Failed to initialize proof engine", zap.Error(err))
		}
		defer engine.Close()

		if err := engine.StartWatching(ctx, args, printWatchReport(os.Stdout)); err != nil {
			logger.Fatal("Failed to watch", zap.Strings("dirs", args), zap.Error(err))
		}
		fmt.Printf("Watching %v for changes, press Ctrl+C to stop\n", args)
		<-ctx.Done()
	},
}

func printWatchReport(w io.Writer) internal.ReportHandler {
	return func(report *internal.Report, err error) {
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		if report == nil {
			return
		}
		fmt.Fprint(w, formatter.FormatReport(report))
		if diff := formatter.ProofDiff(report.Previous, report.Proof); diff != "" {
			fmt.Fprintf(w, "proof of %s changed:\n%s", report.Module, diff)
		}
	}
}
