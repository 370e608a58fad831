package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetsched/app"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/infra/logger"
	"github.com/kilianp07/fleetsched/pkg/export"
)

var solveOpts struct {
	instance string
	out      string
	format   string
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Schedule the vehicles of one instance",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveOpts.instance, "instance", "i", "", "instance file (json or yaml) or planning API url")
	f.StringVarP(&solveOpts.out, "out", "o", "", "output file, stdout when empty")
	f.StringVarP(&solveOpts.format, "format", "f", "json", "output format: "+strings.Join(export.Formats, ", "))
	_ = solveCmd.MarkFlagRequired("instance")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	inst, err := loadInstance(ctx, cfg, solveOpts.instance, logger.New("instance"))
	if err != nil {
		return fmt.Errorf("load instance: %w", err)
	}
	rep, solveErr := svc.Solve(ctx, inst)
	var stageErr *scheduler.StageError
	if errors.As(solveErr, &stageErr) {
		return solveErr
	}

	w := cmd.OutOrStdout()
	if solveOpts.out != "" {
		f, err := os.Create(solveOpts.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, solveOpts.format, rep); err != nil {
		return err
	}
	return solveErr
}
