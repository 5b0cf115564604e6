package prove

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gnolang/vcprove/internal"
)

type ProverEngine interface {
	Run(ctx context.Context, filePath string) (*internal.Report, error)
}

// New creates a proof engine for config.
func New(logger *zap.Logger, config Config, opts ...internal.EngineOption) (*internal.Engine, error) {
	return internal.NewEngine(logger, config.EngineConfig(), opts...)
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine ProverEngine,
	paths []string,
	processor func(context.Context, ProverEngine, string) (*internal.Report, error),
) ([]*internal.Report, error) {
	var allReports []*internal.Report
	var errs []error
	for _, path := range paths {
		reports, err := ProcessPath(ctx, logger, engine, path, processor)
		allReports = append(allReports, reports...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			if ctx.Err() != nil {
				return allReports, err
			}
			errs = append(errs, err)
		}
	}

	return allReports, errors.Join(errs...)
}

// ProcessPath proves the module at path, or every module file below it when
// path is a directory. Files are proved one at a time since the prover
// already spreads the obligations of a module over its jobs. A failing file
// does not stop the others; the errors are joined.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine ProverEngine,
	path string,
	processor func(context.Context, ProverEngine, string) (*internal.Report, error),
) ([]*internal.Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		err := filepath.Walk(path, func(filePath string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fileInfo.IsDir() && internal.IsModuleFile(filePath) {
				files = append(files, filePath)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", path, err)
		}
	} else if internal.IsModuleFile(path) {
		files = append(files, path)
	} else if logger != nil {
		logger.Debug("skipping non-module file", zap.String("file", path))
	}

	var reports []*internal.Report
	var errs []error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := processor(ctx, engine, file)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			if logger != nil {
				logger.Error("Error processing file", zap.String("file", file), zap.Error(err))
			}
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
		}
	}

	return reports, errors.Join(errs...)
}

func ProcessFile(ctx context.Context, engine ProverEngine, filePath string) (*internal.Report, error) {
	return engine.Run(ctx, filePath)
}
