package main

import (
	"fmt"

	"github.com/noseyparker/noseyparker/pkg/datastore"
	"github.com/spf13/cobra"
)

var datastoreInitStoreBlobs bool

var datastoreCmd = &cobra.Command{
	Use:   "datastore",
	Short: "Manage Nosey Parker datastores",
}

var datastoreInitCmd = &cobra.Command{
	Use:   "init <datastore>",
	Short: "Create a new, empty datastore",
	Long: "Create a new datastore directory with the clones/, scratch/, and " +
		"(with --store-blobs) blobs/ subdirectories, a .gitignore, and an " +
		"initialized datastore.db. Fails if the directory already contains a " +
		"datastore.db.",
	Args: cobra.ExactArgs(1),
	RunE: runDatastoreInit,
}

func init() {
	datastoreCmd.AddCommand(datastoreInitCmd)
	datastoreInitCmd.Flags().BoolVar(&datastoreInitStoreBlobs, "store-blobs", false, "Enable content-addressable blob storage")
}

func runDatastoreInit(cmd *cobra.Command, args []string) error {
	path := args[0]

	ds, err := datastore.Open(path, datastore.Options{StoreBlobs: datastoreInitStoreBlobs})
	if err != nil {
		return fmt.Errorf("initializing datastore: %w", err)
	}
	defer ds.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized datastore at %s\n", path)
	return nil
}
