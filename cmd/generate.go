package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetsched/internal/generator"
)

var genCfg generator.Config
var genOut string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic instance",
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.Int64Var(&genCfg.Seed, "seed", 1, "random seed")
	f.StringVar(&genCfg.Depot, "depot", "depot", "depot id")
	f.StringVar(&genCfg.Date, "date", "", "service date")
	f.IntVar(&genCfg.Lines, "lines", 2, "number of lines")
	f.IntVar(&genCfg.StopsPerLine, "stops", 6, "stops per line")
	f.IntVar(&genCfg.TripsPerLine, "trips", 8, "trips per line")
	f.IntVar(&genCfg.Vehicles, "vehicles", 6, "fleet size")
	f.IntVar(&genCfg.DemandsPerTrip, "demands", 3, "demands per trip")
	f.StringVarP(&genOut, "out", "o", "", "output file (.json or .yaml), stdout as yaml when empty")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	file, err := generator.Generate(genCfg)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if genOut != "" {
		out, err := os.Create(genOut)
		if err != nil {
			return err
		}
		defer out.Close()
		w = out
	}
	if strings.EqualFold(filepath.Ext(genOut), ".json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(file)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(file)
}
