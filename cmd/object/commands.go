package object

import (
	"fmt"
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/spf13/cobra"
	"io"
	"net/http"
	"os"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [path]",
		Short: "Writes the content of an object to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, _ := cmd.Flags().GetInt64("offset")
			numBytes, _ := cmd.Flags().GetInt64("bytes")

			data, err := objectClient.Object.Get(util.GetContainer(), args[0], offset, numBytes)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [path] [content]",
		Short: "Writes an object, the content is read from stdin if omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appendData, _ := cmd.Flags().GetBool("append")

			var body []byte
			if len(args) == 2 {
				body = []byte(args[1])
			} else {
				var err error
				if body, err = io.ReadAll(os.Stdin); err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			}

			if _, err := objectClient.Object.Put(util.GetContainer(), args[0], body, appendData); err != nil {
				return err
			}
			fmt.Printf("put %d bytes successfully\n", len(body))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "delete [path]",
		Short: "Deletes an object or an empty directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := objectClient.Object.Delete(util.GetContainer(), args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	headCmd = &cobra.Command{
		Use:   "head [path]",
		Short: "Checks if an object exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := objectClient.Object.Head(util.GetContainer(), args[0],
				client.WithRaiseForStatus(common.RaiseUnless(http.StatusOK, http.StatusNotFound)))
			if err != nil {
				return err
			}
			fmt.Printf("path=%s, found=%t, size=%s\n", args[0], resp.StatusCode == http.StatusOK, resp.Headers.Get("Content-Length"))
			return nil
		},
	}
	lsCmd = &cobra.Command{
		Use:   "ls [path]",
		Short: "Lists the objects and directories below a path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := client.GetContainerContentsInput{}
			if len(args) == 1 {
				input.Path = args[0]
			}
			input.GetAllAttributes, _ = cmd.Flags().GetBool("attributes")
			input.DirectoriesOnly, _ = cmd.Flags().GetBool("dirs")
			input.Limit, _ = cmd.Flags().GetInt("limit")
			input.Marker, _ = cmd.Flags().GetString("marker")

			listing, err := objectClient.Container.Contents(util.GetContainer(), input)
			if err != nil {
				return err
			}
			if listing.Error != nil {
				return fmt.Errorf("listing failed: %v", listing.Error)
			}

			for _, prefix := range listing.CommonPrefixes {
				fmt.Printf("%-12s%s\n", "<dir>", prefix.Prefix)
			}
			for _, content := range listing.Contents {
				fmt.Printf("%-12d%s\n", content.Size, content.Key)
			}
			if listing.IsTruncated {
				fmt.Printf("truncated, continue with --marker=%s\n", listing.NextMarker)
			}
			return nil
		},
	}
)

func init() {
	getCmd.Flags().Int64("offset", 0, util.WrapString("Byte offset to start reading at"))
	getCmd.Flags().Int64("bytes", 0, util.WrapString("Number of bytes to read (0 = up to the end)"))

	putCmd.Flags().Bool("append", false, util.WrapString("Append to the object instead of replacing it"))

	lsCmd.Flags().Bool("attributes", false, util.WrapString("Include all attributes of the objects"))
	lsCmd.Flags().Bool("dirs", false, util.WrapString("Only list directories"))
	lsCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of entries (0 = server default)"))
	lsCmd.Flags().String("marker", "", util.WrapString("Marker of a previous listing to continue from"))
}
