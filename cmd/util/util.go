package util

import (
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/client"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var (
	Logger = logger.GetLogger("cli")

	// jsonArgs decodes integral numbers of arguments as int64 so they are sent as integers
	jsonArgs = sonic.Config{UseInt64: true}.Froze()
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags of the client to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "api"
	cmd.PersistentFlags().String(key, "", WrapString("The endpoint of the service, e.g. http://localhost:8081 or unix:///run/web.sock (env V3IO_API)"))

	key = "access-key"
	cmd.PersistentFlags().String(key, "", WrapString("The access key sent with every request (env V3IO_ACCESS_KEY)"))

	key = "container"
	cmd.PersistentFlags().String(key, "bigdata", WrapString("The container to operate on"))

	key = "max-connections"
	cmd.PersistentFlags().Int(key, common.DefaultMaxConnections, WrapString("Size of the connection pool, also the maximum number of requests in flight"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("The socket timeout in seconds (0 = no timeout)"))

	key = "retries"
	cmd.PersistentFlags().Int(key, common.DefaultRetryCount, WrapString("How many times a request is resent after a connection fault (negative = never)"))

	key = "transport"
	cmd.PersistentFlags().String(key, common.TransportPooled, WrapString("transport to use (pooled, http)"))

	key = "tls-insecure"
	cmd.PersistentFlags().Bool(key, false, WrapString("Skip verification of the server certificate for https endpoints"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(common.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Endpoint:           viper.GetString("api"),
		AccessKey:          viper.GetString("access-key"),
		MaxConnections:     viper.GetInt("max-connections"),
		TimeoutSecond:      viper.GetInt("timeout"),
		RetryCount:         viper.GetInt("retries"),
		Transport:          viper.GetString("transport"),
		InsecureSkipVerify: viper.GetBool("tls-insecure"),
		LogLevel:           viper.GetString("log-level"),
		TraceRequests:      viper.GetBool("trace"),
	}
}

// GetContainer returns the configured container
func GetContainer() string {
	return viper.GetString("container")
}

// NewClient binds the flags of cmd, initializes the loggers and creates a client
func NewClient(cmd *cobra.Command) (*client.Client, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}

	config, err := common.LoadClientConfig(GetClientConfig())
	if err != nil {
		return nil, err
	}
	common.InitLoggers(config)

	Logger.Debugf("Using configuration:%s", config.String())
	return client.NewClient(config, client.NewTransport(config))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// PrintJSON writes v as indented json to stdout
func PrintJSON(v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

// ParseJSONArg decodes a json command line argument into v
func ParseJSONArg(name, arg string, v any) error {
	if err := jsonArgs.UnmarshalFromString(arg, v); err != nil {
		return fmt.Errorf("%s must be valid json: %w", name, err)
	}
	return nil
}
