package kv

import (
	"fmt"
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [table] [key] [attributes]",
		Short: "Creates or replaces an item, attributes are given as json object",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var attributes map[string]any
			if err := util.ParseJSONArg("attributes", args[2], &attributes); err != nil {
				return err
			}
			condition, _ := cmd.Flags().GetString("condition")

			if _, err := kvClient.Do(util.GetContainer(), client.PutItemInput{
				TablePath:  args[0],
				Key:        args[1],
				Attributes: attributes,
				Condition:  condition,
			}); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [table] [key]",
		Short: "Reads the attributes of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, _ := cmd.Flags().GetStringSlice("attributes")
			item, err := kvClient.KV.Get(util.GetContainer(), args[0], args[1], names)
			if err != nil {
				return err
			}
			return util.PrintJSON(item)
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [table]",
		Short: "Reads all items of a table matching the filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, _ := cmd.Flags().GetStringSlice("attributes")
			filter, _ := cmd.Flags().GetString("filter")
			marker, _ := cmd.Flags().GetString("marker")
			limit, _ := cmd.Flags().GetInt("limit")
			segment, _ := cmd.Flags().GetInt("segment")
			totalSegments, _ := cmd.Flags().GetInt("total-segments")

			input := client.GetItemsInput{
				TablePath:        args[0],
				AttributeNames:   names,
				FilterExpression: filter,
				Marker:           marker,
				Segment:          segment,
				TotalSegments:    totalSegments,
			}
			if cmd.Flags().Changed("limit") {
				input.Limit = client.Int(limit)
			}
			cursor := kvClient.KV.NewCursor(util.GetContainer(), input)

			count := 0
			for {
				item, ok, err := cursor.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				if err := util.PrintJSON(item); err != nil {
					return err
				}
				count++
			}
			fmt.Printf("scanned %d items\n", count)
			return nil
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [table] [key]",
		Short: "Updates an item by expression or attributes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expression, _ := cmd.Flags().GetString("expression")
			condition, _ := cmd.Flags().GetString("condition")
			mode, _ := cmd.Flags().GetString("mode")
			rawAttributes, _ := cmd.Flags().GetString("set")

			var attributes map[string]any
			if rawAttributes != "" {
				if err := util.ParseJSONArg("set", rawAttributes, &attributes); err != nil {
					return err
				}
			}

			if _, err := kvClient.KV.Update(util.GetContainer(), client.UpdateItemInput{
				TablePath:  args[0],
				Key:        args[1],
				Attributes: attributes,
				Expression: expression,
				Condition:  condition,
				UpdateMode: mode,
			}); err != nil {
				return err
			}
			fmt.Println("update successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "delete [table] [key]",
		Short: "Deletes an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := kvClient.KV.Delete(util.GetContainer(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
)

func init() {
	putCmd.Flags().String("condition", "", util.WrapString("Only write the item if the condition expression holds"))

	getCmd.Flags().StringSlice("attributes", nil, util.WrapString("Attributes to read (comma separated, default all)"))

	scanCmd.Flags().StringSlice("attributes", nil, util.WrapString("Attributes to read (comma separated, default all)"))
	scanCmd.Flags().String("filter", "", util.WrapString("Filter expression the items must match"))
	scanCmd.Flags().String("marker", "", util.WrapString("Marker of a previous scan to continue from"))
	scanCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of items to read (default all)"))
	scanCmd.Flags().Int("segment", 0, util.WrapString("Segment of the table to read, requires --total-segments"))
	scanCmd.Flags().Int("total-segments", 0, util.WrapString("Number of segments the table is split into"))

	updateCmd.Flags().String("expression", "", util.WrapString("Update expression, e.g. \"age = age + 1\""))
	updateCmd.Flags().String("set", "", util.WrapString("Attributes to write as json object, used when no expression is given"))
	updateCmd.Flags().String("condition", "", util.WrapString("Only update the item if the condition expression holds"))
	updateCmd.Flags().String("mode", "", util.WrapString("Update mode (default CreateOrReplaceAttributes)"))
}
