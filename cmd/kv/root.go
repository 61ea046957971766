package kv

import (
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/spf13/cobra"
)

var (
	kvClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform table item operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Add common client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(scanCmd)
	KeyValueCommands.AddCommand(updateCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the client
func setupKVClient(cmd *cobra.Command, _ []string) (err error) {
	kvClient, err = util.NewClient(cmd)
	return err
}

// closeKVClient closes all connections of the client
func closeKVClient(_ *cobra.Command, _ []string) error {
	if kvClient == nil {
		return nil
	}
	return kvClient.Close()
}
