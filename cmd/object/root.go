package object

import (
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/spf13/cobra"
)

var (
	objectClient *client.Client

	// ObjectCommands represents the object command group
	ObjectCommands = &cobra.Command{
		Use:                "object",
		Short:              "Perform object operations",
		PersistentPreRunE:  setupObjectClient,
		PersistentPostRunE: closeObjectClient,
	}
)

func init() {
	// Add common client flags to the object command
	util.SetupClientFlags(ObjectCommands)

	// Add subcommands
	ObjectCommands.AddCommand(getCmd)
	ObjectCommands.AddCommand(putCmd)
	ObjectCommands.AddCommand(delCmd)
	ObjectCommands.AddCommand(headCmd)
	ObjectCommands.AddCommand(lsCmd)
}

// setupObjectClient initializes the client
func setupObjectClient(cmd *cobra.Command, _ []string) (err error) {
	objectClient, err = util.NewClient(cmd)
	return err
}

// closeObjectClient closes all connections of the client
func closeObjectClient(_ *cobra.Command, _ []string) error {
	if objectClient == nil {
		return nil
	}
	return objectClient.Close()
}
