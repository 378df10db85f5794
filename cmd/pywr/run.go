package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pywr/internal/apperror"
	"pywr/internal/config"
	"pywr/internal/logging"
	"pywr/internal/recorder"
	"pywr/internal/schema"
	"pywr/internal/simulator"
	"pywr/internal/solver"
)

func newRunCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run MODEL.json",
		Short: "Run every scenario in a model document and write its declared outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Init(cfg.Log)
			log := logging.WithComponent("cmd.run")

			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			model, store, err := schema.Build(doc)
			if err != nil {
				return err
			}
			if errs := model.Validate(); len(errs) > 0 {
				return apperror.New(apperror.CodeSchemaError, fmt.Sprintf("model failed validation: %v", errs[0])).
					WithDetails("errors_total", len(errs))
			}

			opts := &solver.Options{
				Epsilon:       cfg.Solver.Tolerance,
				MaxIterations: cfg.Solver.MaxIterations,
				Timeout:       cfg.Solver.Timeout,
			}
			eng, err := simulator.New(model, store, opts)
			if err != nil {
				return err
			}

			sinks, err := recorder.Build(model, outputDir)
			if err != nil {
				return err
			}
			for _, s := range sinks {
				eng.AddRecorder(s)
			}

			ctx, cancel := runContext(cmd.Context(), cfg.Run.Timeout)
			defer cancel()

			log.Info("starting run", "model", args[0], "scenarios", model.Scenario)
			if runErr := eng.RunScenarios(ctx, &simulator.RunOptions{MaxWorkers: cfg.Run.MaxWorkers}); runErr != nil && runErr.HasFailures() {
				return runErr.Failures[0].Err
			}
			log.Info("run complete", "outputs", len(sinks))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory outputs' relative paths are resolved against")
	return cmd
}

func readDocument(path string) (*schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeSchemaError, "read model document")
	}
	var doc schema.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeSchemaError, "parse model document")
	}
	return &doc, nil
}

func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = config.NewLoader(config.WithConfigPaths(cfgFile))
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeBuildError, "load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeBuildError, "validate configuration")
	}
	return cfg, nil
}

func runContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
