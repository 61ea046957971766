package container

import (
	"fmt"
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/spf13/cobra"
)

// ContainersCmd lists the containers visible with the configured access key
var ContainersCmd = &cobra.Command{
	Use:   "containers",
	Short: "Lists the containers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := util.NewClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		out, err := c.Container.List()
		if err != nil {
			return err
		}
		if out.Error != nil {
			return fmt.Errorf("listing failed: %v", out.Error)
		}

		for _, container := range out.Containers {
			fmt.Printf("%-6d%-26s%s\n", container.ID, container.CreationDate, container.Name)
		}
		return nil
	},
}

func init() {
	util.SetupClientFlags(ContainersCmd)
}
