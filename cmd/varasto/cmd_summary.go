package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varasto/types"
)

var summaryOutput string

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show grouped counts for the active snapshot",
	Long: `Aggregate the active snapshot: total resources, counts per kind,
per compartment display name and per status. All numbers come from the
local snapshot; nothing is fetched.`,
	Example: `  varasto summary            # Table of grouped counts
  varasto summary -o json    # Machine-readable output`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVarP(&summaryOutput, "output", "o", "table", "Output format: table, json")
}

func runSummary(cmd *cobra.Command, args []string) error {
	manager, _, cleanup, err := setupManager(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := manager.GetSummary()
	if err != nil {
		return err
	}

	switch summaryOutput {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(summary); err != nil {
			return err
		}
	case "table":
		age, _ := manager.Age()
		fmt.Printf("Snapshot summary (%d resources, built %.1fh ago)\n\n",
			summary.Total, age.Hours())

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BY KIND\tCOUNT")
		for _, kind := range types.AllKinds() {
			if n := summary.ByKind[kind]; n > 0 {
				fmt.Fprintf(w, "%s\t%d\n", kind, n)
			}
		}
		fmt.Fprintln(w, "\t")
		fmt.Fprintln(w, "BY COMPARTMENT\tCOUNT")
		for _, name := range sortedKeys(summary.ByCompartment) {
			fmt.Fprintf(w, "%s\t%d\n", name, summary.ByCompartment[name])
		}
		fmt.Fprintln(w, "\t")
		fmt.Fprintln(w, "BY STATUS\tCOUNT")
		for _, status := range sortedKeys(summary.ByStatus) {
			fmt.Fprintf(w, "%s\t%d\n", status, summary.ByStatus[status])
		}
		if err := w.Flush(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid output format: %s (must be table or json)", summaryOutput)
	}

	warnIfStale(manager)
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
