package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetsched/core/breaks"
	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/network"
	"github.com/kilianp07/fleetsched/infra/logger"
)

var inspectInstance string

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Build the time-expanded network and print its size",
	RunE:  runNetwork,
}

var breaksCmd = &cobra.Command{
	Use:   "breaks",
	Short: "List the break candidate arcs of every long-shift vehicle",
	RunE:  runBreaks,
}

func init() {
	for _, c := range []*cobra.Command{networkCmd, breaksCmd} {
		c.Flags().StringVarP(&inspectInstance, "instance", "i", "", "instance file (json or yaml) or planning API url")
		_ = c.MarkFlagRequired("instance")
		rootCmd.AddCommand(c)
	}
}

func buildNetwork(cmd *cobra.Command) (*model.Network, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts, _, err := cfg.Scheduling.Options()
	if err != nil {
		return nil, err
	}
	log := logger.New("inspect")
	inst, err := loadInstance(cmd.Context(), cfg, inspectInstance, log)
	if err != nil {
		return nil, err
	}
	return network.Build(inst.Input, opts, log)
}

func runNetwork(cmd *cobra.Command, _ []string) error {
	net, err := buildNetwork(cmd)
	if err != nil {
		return err
	}
	stats := net.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeOut(cmd, "setting %s\n", net.Setting)
	for _, k := range keys {
		writeOut(cmd, "%-12s %d\n", k, stats[k])
	}
	for _, u := range net.Unservable {
		writeOut(cmd, "unservable %s (%d pax)\n", u.Demand.ID, u.Demand.Passengers)
	}
	return nil
}

func runBreaks(cmd *cobra.Command, _ []string) error {
	net, err := buildNetwork(cmd)
	if err != nil {
		return err
	}
	sets := breaks.Classify(net, logger.New("breaks"))
	if len(sets.LongShift) == 0 {
		writeOut(cmd, "no vehicle needs a break\n")
		return nil
	}
	for _, v := range sets.LongShift {
		writeOut(cmd, "%s\n", v)
		for _, k := range []breaks.Kind{breaks.KindLong45, breaks.KindSplit15, breaks.KindSplit30} {
			for _, a := range sets.Of(k)[v] {
				writeOut(cmd, "  %-8s %s\n", k, a)
			}
		}
	}
	return nil
}
