package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <resource-id>",
	Short: "Fetch one resource from the active snapshot by ID",
	Example: `  varasto get ocid1.database.oc1..aaaa
  varasto get db-prod-01`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	manager, _, cleanup, err := setupManager(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	resource, err := manager.GetByID(args[0])
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(resource); err != nil {
		return err
	}

	warnIfStale(manager)
	return nil
}
