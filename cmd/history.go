package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetsched/api/runs"
	"github.com/kilianp07/fleetsched/infra/logger"
	"github.com/kilianp07/fleetsched/infra/store"
)

var historyOpts struct {
	depot   string
	status  string
	vehicle string
	since   time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scheduling runs",
	RunE:  runHistory,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history API",
	RunE:  runServe,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyOpts.depot, "depot", "", "depot id")
	f.StringVar(&historyOpts.status, "status", "", "run status")
	f.StringVar(&historyOpts.vehicle, "vehicle", "", "dispatched vehicle id")
	f.DurationVar(&historyOpts.since, "since", 0, "only runs younger than this")
	rootCmd.AddCommand(historyCmd, serveCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Type == "" {
		return errors.New("history: no store configured")
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	q := store.RunQuery{Depot: historyOpts.depot, Status: historyOpts.status, VehicleID: historyOpts.vehicle}
	if historyOpts.since > 0 {
		q.Start = time.Now().Add(-historyOpts.since)
	}
	recs, err := st.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTIME\tDEPOT\tDATE\tSTATUS\tFLEET\tUNSERVABLE")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.RunID, r.Timestamp.Format(time.RFC3339), r.Depot, r.Date, r.Status, r.FleetSize, strings.Join(r.Unservable, ","))
	}
	return tw.Flush()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	var gatherer prometheus.Gatherer
	if cfg.API.Metrics {
		gatherer = prometheus.DefaultGatherer
	}
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           runs.NewMux(st, cfg.API.Token, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logger.New("api")
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.API.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
