package kv

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dplane/cmd/util"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport/base"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"math"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Throughput benchmark of the client against a table",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfTable            = "__perf/"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfBatchSize        = 64
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "batch-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("How many requests one operation of the batch tests pipelines"))
	key = "table"
	perfTestCmd.Flags().String(key, perfTable, util.WrapString("The table the test items are written to"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the transport metrics (Prometheus text format) after the tests"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = viper.GetInt("threads")
	perfBatchSize = max(viper.GetInt("batch-size"), 1)
	perfTable = viper.GetString("table")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Throughput benchmark of the client")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	cfg := kvClient.Config()
	fmt.Println(cfg.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Batch Size: %d\n", perfBatchSize)
	fmt.Println()

	fmt.Println("starting tests...")

	container := util.GetContainer()
	value := map[string]any{"value": "test"}

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	putResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("put") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("put")

		// cleanup
		b.Cleanup(func() { deleteKeys("put", container, iter) })

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.KV.Put(container, perfTable, getKey(counter), value); err != nil {
					util.Logger.Warningf("(put) - error putting item: %v", err)
				}
				counter++
			}
		})
	})

	results["put"] = putResult
	printResult("put", putResult)

	putLargeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("put-large") {
			return
		}

		// prepare large value
		largeValue := map[string]any{"value": strings.Repeat("x", perfLargeValueSizeKB*1024)}

		// prepare keys
		getKey, iter := getKeys("put-large")

		// cleanup
		b.Cleanup(func() { deleteKeys("put-large", container, iter) })

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.KV.Put(container, perfTable, getKey(counter), largeValue); err != nil {
					util.Logger.Warningf("(put-large) - error putting item: %v", err)
				}
				counter++
			}
		})
	})

	results["put-large"] = putLargeResult
	printResult("put-large", putLargeResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")
		putKeys("get", container, iter, value)

		// cleanup
		b.Cleanup(func() { deleteKeys("get", container, iter) })

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.KV.Get(container, perfTable, getKey(counter), nil); err != nil {
					util.Logger.Warningf("(get) - error getting item: %v", err)
				}
				counter++
			}
		})
	})

	results["get"] = getResult
	printResult("get", getResult)

	// every operation of the batch tests is one full batch of perfBatchSize requests
	batchGetResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("batch-get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("batch-get")
		putKeys("batch-get", container, iter, value)

		// cleanup
		b.Cleanup(func() { deleteKeys("batch-get", container, iter) })

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			batch := kvClient.NewBatch()
			counter := 0
			for pb.Next() {
				for i := 0; i < perfBatchSize; i++ {
					if err := batch.Add(container, client.GetItemInput{TablePath: perfTable, Key: getKey(counter)}); err != nil {
						util.Logger.Warningf("(batch-get) - error encoding request: %v", err)
					}
					counter++
				}
				if _, err := batch.Wait(common.RaiseDefault); err != nil {
					util.Logger.Warningf("(batch-get) - error waiting for batch: %v", err)
				}
			}
		})
	})

	results["batch-get"] = batchGetResult
	printResult("batch-get", batchGetResult)

	batchPutResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("batch-put") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("batch-put")

		// cleanup
		b.Cleanup(func() { deleteKeys("batch-put", container, iter) })

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			batch := kvClient.NewBatch()
			counter := 0
			for pb.Next() {
				for i := 0; i < perfBatchSize; i++ {
					if err := batch.Add(container, client.PutItemInput{TablePath: perfTable, Key: getKey(counter), Attributes: value}); err != nil {
						util.Logger.Warningf("(batch-put) - error encoding request: %v", err)
					}
					counter++
				}
				if _, err := batch.Wait(common.RaiseDefault); err != nil {
					util.Logger.Warningf("(batch-put) - error waiting for batch: %v", err)
				}
			}
		})
	})

	results["batch-put"] = batchPutResult
	printResult("batch-put", batchPutResult)

	scanResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("scan") {
			return
		}

		// prepare keys
		_, iter := getKeys("scan")
		putKeys("scan", container, iter, value)

		// cleanup
		b.Cleanup(func() { deleteKeys("scan", container, iter) })

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			if _, err := kvClient.KV.NewCursor(container, client.GetItemsInput{TablePath: perfTable}).All(); err != nil {
				util.Logger.Warningf("(scan) - error scanning table: %v", err)
			}
		}
	})

	results["scan"] = scanResult
	printResult("scan", scanResult)

	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("mixed")
		putKeys("mixed", container, iter, value)

		// cleanup
		b.Cleanup(func() { deleteKeys("mixed", container, iter) })

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := getKey(counter)
				var err error
				switch counter % 3 {
				case 0: // put
					_, err = kvClient.KV.Put(container, perfTable, key, value)
				case 1: // get (the item may be deleted)
					_, err = kvClient.Do(container, client.GetItemInput{TablePath: perfTable, Key: key},
						client.WithRaiseForStatus(common.RaiseUnless(http.StatusOK, http.StatusNotFound)))
				case 2: // delete
					_, err = kvClient.KV.Delete(container, perfTable, key, client.WithRaiseForStatus(common.RaiseNever))
				}

				if err != nil {
					util.Logger.Warningf("(mixed) - error performing operation (%d): %v", counter%3, err)
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult)

	// Print the transport metrics if requested
	if viper.GetBool("metrics") {
		printMetrics()
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, kvClient.Config()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%d", prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// putKeys writes value to all keys with one pipelined batch
func putKeys(test, container string, iter func(func(string)), value map[string]any) {
	items := make(map[string]map[string]any, perfKeySpread)
	iter(func(k string) {
		items[k] = value
	})
	if _, err := kvClient.KV.PutMany(container, perfTable, items); err != nil {
		util.Logger.Warningf("(%s) - error putting items: %v", test, err)
	}
}

// deleteKeys deletes all keys with one pipelined batch, missing items are ignored
func deleteKeys(test, container string, iter func(func(string))) {
	batch := kvClient.NewBatch()
	iter(func(k string) {
		if err := batch.Add(container, client.DeleteObjectInput{Path: strings.TrimSuffix(perfTable, "/") + "/" + k}); err != nil {
			util.Logger.Warningf("(%s) - error encoding delete: %v", test, err)
		}
	})
	if _, err := batch.Wait(common.RaiseNever); err != nil {
		util.Logger.Warningf("(%s) - error deleting items: %v", test, err)
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// printMetrics prints the metrics of the pooled transport
func printMetrics() {
	pooled, ok := kvClient.Transport().(*base.ClientTransport)
	if !ok {
		fmt.Println("\nmetrics are only available for the pooled transport")
		return
	}

	stats := pooled.Stats()
	fmt.Println()
	fmt.Printf("requests=%d mean=%s p99=%s reconnects=%d\n", stats.Requests, stats.MeanLatency, stats.P99Latency, stats.Reconnects)
	fmt.Println()
	pooled.WriteMetrics(os.Stdout)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "Transport", "TimeoutSec", "RetryCount", "MaxConnections",
		"Threads", "BatchSize", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	tests := make([]string, 0, len(results))
	for test := range results {
		tests = append(tests, test)
	}
	slices.Sort(tests)

	for _, test := range tests {
		result := results[test]

		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			config.Transport,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Retries()),
			strconv.Itoa(config.MaxConnections),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfBatchSize),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
