// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command rctour walks through rc's ownership model and stress-tests its
// Sync mode.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"code.hybscloud.com/rc/internal/tour"
)

var (
	verbose    bool
	configPath string
	goroutines int
	iterations int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rctour",
	Short: "Shared ownership walkthrough for code.hybscloud.com/rc",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show strong and weak counts while a branch adopts a leaf",
	RunE:  runCounts,
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Share one mutable value between lists, then leak and fix a reference cycle",
	RunE:  runCycle,
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Clone, upgrade and release one Sync allocation from many goroutines",
	RunE:  runStress,
}

func runCounts(cmd *cobra.Command, args []string) error {
	if _, err := tour.Counts(logger); err != nil {
		return err
	}
	_, err := tour.Shape(logger)
	return err
}

func runCycle(cmd *cobra.Command, args []string) error {
	if _, err := tour.SharedValue(logger); err != nil {
		return err
	}
	r, err := tour.Cycle(logger)
	if err != nil {
		return err
	}
	if r.WeakDrops != 2 {
		return fmt.Errorf("weak back edge destroyed %d nodes, want 2", r.WeakDrops)
	}
	return nil
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg, err := tour.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("goroutines") {
		cfg.Goroutines = goroutines
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Iterations = iterations
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	_, err = tour.Stress(ctx, cfg, logger)
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	stressCmd.Flags().StringVarP(&configPath, "config", "c", "rctour.yaml", "YAML config file")
	stressCmd.Flags().IntVarP(&goroutines, "goroutines", "g", 8, "Number of worker goroutines")
	stressCmd.Flags().IntVarP(&iterations, "iterations", "n", 10000, "Rounds per worker")
	rootCmd.AddCommand(countsCmd, cycleCmd, stressCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
