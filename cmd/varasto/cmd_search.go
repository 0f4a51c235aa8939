package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/varasto/config"
	"github.com/yairfalse/varasto/snapshot"
	"github.com/yairfalse/varasto/types"
)

var (
	searchKind        string
	searchCompartment string
	searchLimit       int
	searchOutput      string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search resources in the active snapshot",
	Long: `Search the active snapshot without touching the remote directory.

Text matches case-insensitively against resource names, name tokens and
compartment display names. Filters AND-combine: a kind filter and a
compartment filter narrow the text matches further.`,
	Example: `  varasto search proddb                    # Substring match on names
  varasto search db --kind database        # Only databases
  varasto search --compartment Production  # Everything under Production
  varasto search host --limit 50           # Raise the result cap`,
	Args:              cobra.MaximumNArgs(1),
	RunE:              runSearch,
	ValidArgsFunction: completeSearchTerms,
}

// completeSearchTerms feeds shell completion from the snapshot's name-token
// index, so tab completion suggests terms that will actually hit.
func completeSearchTerms(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	manager, _, cleanup, err := setupManager(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer cleanup()

	tokens, err := manager.SuggestTokens(toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return tokens, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchKind, "kind", "k", "", "Filter by resource kind (database, host)")
	searchCmd.Flags().StringVar(&searchCompartment, "compartment", "", "Filter by compartment display name")
	searchCmd.Flags().IntVar(&searchLimit, "limit", config.DefaultSearchLimit, "Maximum results to return")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "table", "Output format: table, json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	manager, _, cleanup, err := setupManager(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	query := snapshot.SearchQuery{
		CompartmentName: searchCompartment,
		Limit:           searchLimit,
	}
	if len(args) > 0 {
		query.Text = args[0]
	}
	if searchKind != "" {
		kind, err := types.ParseKind(searchKind)
		if err != nil {
			return err
		}
		query.Kind = kind
	}

	results, err := manager.Search(query)
	if err != nil {
		return err
	}

	if err := printResources(results, searchOutput); err != nil {
		return err
	}
	warnIfStale(manager)
	return nil
}

// printResources renders a resource list as a table or JSON.
func printResources(resources []types.Resource, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resources)
	case "table":
		if len(resources) == 0 {
			fmt.Println("No resources found")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tCOMPARTMENT\tSTATUS\tID")
		for _, r := range resources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.Name, r.Kind, r.CompartmentID, r.Status, r.ID)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d resources\n", len(resources))
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (must be table or json)", format)
	}
}
