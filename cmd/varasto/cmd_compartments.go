package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	compartmentsOutput string
	compartmentsName   string
)

// compartmentsCmd represents the compartments command
var compartmentsCmd = &cobra.Command{
	Use:   "compartments",
	Short: "List the compartment tree of the active snapshot",
	Long: `Print every compartment in the active snapshot ordered by its
materialized path, so the output reads as a tree. With --name, list the
resources under compartments carrying that display name instead; when
several compartments share the name, their resources are combined.`,
	Example: `  varasto compartments                   # Full tree, path ordered
  varasto compartments --name Production # Resources under Production`,
	RunE: runCompartments,
}

func init() {
	rootCmd.AddCommand(compartmentsCmd)

	compartmentsCmd.Flags().StringVar(&compartmentsName, "name", "", "List resources under this compartment name")
	compartmentsCmd.Flags().StringVarP(&compartmentsOutput, "output", "o", "table", "Output format: table, json")
}

func runCompartments(cmd *cobra.Command, args []string) error {
	manager, _, cleanup, err := setupManager(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	if compartmentsName != "" {
		resources, err := manager.ListByCompartment(compartmentsName)
		if err != nil {
			return err
		}
		if err := printResources(resources, compartmentsOutput); err != nil {
			return err
		}
		warnIfStale(manager)
		return nil
	}

	compartments, err := manager.ListCompartments()
	if err != nil {
		return err
	}

	switch compartmentsOutput {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(compartments); err != nil {
			return err
		}
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tSTATE\tID")
		for _, c := range compartments {
			path := c.PathString()
			if c.PathTruncated {
				path += " (truncated)"
			}
			indent := ""
			if len(c.Path) > 1 {
				indent = strings.Repeat("  ", len(c.Path)-1)
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\n", indent, path, c.State, c.ID)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d compartments\n", len(compartments))
	default:
		return fmt.Errorf("invalid output format: %s (must be table or json)", compartmentsOutput)
	}

	warnIfStale(manager)
	return nil
}
