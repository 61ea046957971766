package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dplane/cmd/container"
	"github.com/ValentinKolb/dplane/cmd/kv"
	"github.com/ValentinKolb/dplane/cmd/object"
	"github.com/ValentinKolb/dplane/cmd/stream"
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dplane",
		Short: "dataplane client for object, table and stream storage",
		Long: fmt.Sprintf(`dplane (v%s)

A client for the HTTP dataplane of a multi-model storage service.
Requests are pipelined over a fixed pool of persistent connections.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dplane",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dplane v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(object.ObjectCommands)
	RootCmd.AddCommand(stream.StreamCommands)
	RootCmd.AddCommand(container.ContainersCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level (debug, info, warn, error)"))
	key = "trace"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("log every request and response of the transport"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
