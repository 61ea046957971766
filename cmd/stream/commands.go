package stream

import (
	"fmt"
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/spf13/cobra"
	"strconv"
	"strings"
)

var (
	createCmd = &cobra.Command{
		Use:   "create [stream] [shards]",
		Short: "Creates a stream with the given number of shards",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shards, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("shards must be a number: %w", err)
			}
			retention, _ := cmd.Flags().GetInt("retention")

			if _, err := streamClient.Stream.Create(util.GetContainer(), args[0], shards, retention); err != nil {
				return err
			}
			fmt.Println("create successfully")
			return nil
		},
	}
	describeCmd = &cobra.Command{
		Use:   "describe [stream]",
		Short: "Prints the shard count and retention of a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := streamClient.Stream.Describe(util.GetContainer(), args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(out)
		},
	}
	seekCmd = &cobra.Command{
		Use:   "seek [shard] [EARLIEST|LATEST|SEQUENCE|TIME]",
		Short: "Resolves a location in a shard, e.g. events/0",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := client.SeekShardInput{
				ShardPath: args[0],
				SeekType:  client.SeekType(strings.ToUpper(args[1])),
			}
			input.StartingSequenceNumber, _ = cmd.Flags().GetInt64("sequence")
			input.TimestampSec, _ = cmd.Flags().GetInt64("timestamp")

			out, err := streamClient.Stream.Seek(util.GetContainer(), input)
			if err != nil {
				return err
			}
			fmt.Println(out.Location)
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [stream] [record...]",
		Short: "Appends one record per argument to a stream",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partitionKey, _ := cmd.Flags().GetString("partition-key")

			records := make([]client.Record, 0, len(args)-1)
			for _, data := range args[1:] {
				records = append(records, client.Record{Data: []byte(data), PartitionKey: partitionKey})
			}
			if cmd.Flags().Changed("shard") {
				shard, _ := cmd.Flags().GetInt("shard")
				for i := range records {
					records[i].ShardID = &shard
				}
			}

			out, err := streamClient.Stream.PutRecords(util.GetContainer(), args[0], records)
			if err != nil {
				return err
			}
			for i, result := range out.Records {
				if result.ErrorCode != 0 {
					fmt.Printf("record=%d, error=%d (%s)\n", i, result.ErrorCode, result.ErrorMessage)
					continue
				}
				fmt.Printf("record=%d, shard=%d, sequence=%d\n", i, result.ShardID, result.SequenceNumber)
			}
			if out.FailedRecordCount > 0 {
				return fmt.Errorf("%d of %d records failed", out.FailedRecordCount, len(records))
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [shard] [location]",
		Short: "Reads records of a shard starting at a location returned by seek",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			out, err := streamClient.Stream.GetRecords(util.GetContainer(), args[0], args[1], limit)
			if err != nil {
				return err
			}
			for _, record := range out.Records {
				fmt.Printf("sequence=%d, partition=%s, data=%s\n", record.SequenceNumber, record.PartitionKey, record.Data)
			}
			fmt.Printf("next=%s, behind=%d\n", out.NextLocation, out.RecordsBehindLatest)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "delete [stream]",
		Short: "Deletes all shards of a stream and the stream itself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := streamClient.Stream.Delete(util.GetContainer(), args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
)

func init() {
	createCmd.Flags().Int("retention", 24, util.WrapString("Retention period of the records in hours"))

	seekCmd.Flags().Int64("sequence", 0, util.WrapString("Sequence number to seek to (SEQUENCE)"))
	seekCmd.Flags().Int64("timestamp", 0, util.WrapString("Unix timestamp in seconds to seek to (TIME)"))

	putCmd.Flags().String("partition-key", "", util.WrapString("Partition key of the records"))
	putCmd.Flags().Int("shard", 0, util.WrapString("Shard to write the records to (default chosen by the service)"))

	getCmd.Flags().Int("limit", 100, util.WrapString("Maximum number of records to read"))
}
