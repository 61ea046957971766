package stream

import (
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/spf13/cobra"
)

var (
	streamClient *client.Client

	// StreamCommands represents the stream command group
	StreamCommands = &cobra.Command{
		Use:                "stream",
		Short:              "Perform stream operations",
		PersistentPreRunE:  setupStreamClient,
		PersistentPostRunE: closeStreamClient,
	}
)

func init() {
	// Add common client flags to the stream command
	util.SetupClientFlags(StreamCommands)

	// Add subcommands
	StreamCommands.AddCommand(createCmd)
	StreamCommands.AddCommand(describeCmd)
	StreamCommands.AddCommand(seekCmd)
	StreamCommands.AddCommand(putCmd)
	StreamCommands.AddCommand(getCmd)
	StreamCommands.AddCommand(delCmd)
}

// setupStreamClient initializes the client
func setupStreamClient(cmd *cobra.Command, _ []string) (err error) {
	streamClient, err = util.NewClient(cmd)
	return err
}

// closeStreamClient closes all connections of the client
func closeStreamClient(_ *cobra.Command, _ []string) error {
	if streamClient == nil {
		return nil
	}
	return streamClient.Close()
}
