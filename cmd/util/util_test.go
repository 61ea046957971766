package util

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line %q is longer than %d characters", line, Wrap)
		}
	}

	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("WrapString() = %q, want %q", got, "short text")
	}
}

func TestGetClientConfigFromFlagsAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("V3IO_ACCESS_KEY", "from-env")

	InitClientConfig()

	cmd := &cobra.Command{Use: "test"}
	SetupClientFlags(cmd)
	if err := cmd.PersistentFlags().Parse([]string{"--api", "host:8081", "--max-connections", "3", "--retries", "-1"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("failed to bind flags: %v", err)
	}

	config := GetClientConfig()
	if config.Endpoint != "host:8081" {
		t.Errorf("Endpoint = %q, want host:8081", config.Endpoint)
	}
	if config.AccessKey != "from-env" {
		t.Errorf("AccessKey = %q, want the environment value", config.AccessKey)
	}
	if config.MaxConnections != 3 {
		t.Errorf("MaxConnections = %d, want 3", config.MaxConnections)
	}
	if config.Retries() != 0 {
		t.Errorf("Retries() = %d, want 0 for a negative retry count", config.Retries())
	}
	if GetContainer() != "bigdata" {
		t.Errorf("GetContainer() = %q, want the default container", GetContainer())
	}
}

func TestParseJSONArg(t *testing.T) {
	var attributes map[string]any
	if err := ParseJSONArg("attributes", `{"age": 42, "ratio": 0.5}`, &attributes); err != nil {
		t.Fatalf("ParseJSONArg() error = %v", err)
	}
	if _, ok := attributes["age"].(int64); !ok {
		t.Errorf("integral numbers must decode as int64, got %T", attributes["age"])
	}
	if _, ok := attributes["ratio"].(float64); !ok {
		t.Errorf("fractional numbers must decode as float64, got %T", attributes["ratio"])
	}

	if err := ParseJSONArg("attributes", `{not json`, &attributes); err == nil {
		t.Error("expected an error for invalid json")
	}
}
