package common

import (
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxConnections is the pool size used when none is configured
	DefaultMaxConnections = 8
	// DefaultRetryCount is the number of read-fault retries used when none is configured
	DefaultRetryCount = 1

	// TransportPooled selects persistent pooled connections
	TransportPooled = "pooled"
	// TransportHTTP selects the net/http session transport
	TransportHTTP = "http"

	// EnvPrefix is the prefix of all environment variables read by LoadClientConfig
	EnvPrefix = "v3io"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of a client and its transport
type ClientConfig struct {
	// Endpoint of the service, e.g. http://host:8081, https://host or unix:///run/web.sock
	Endpoint string `envconfig:"API"`
	// AccessKey is sent as the session key header of every request
	AccessKey string `envconfig:"ACCESS_KEY"`

	// MaxConnections is the fixed size of the connection pool
	MaxConnections int `envconfig:"MAX_CONNECTIONS" default:"8"`
	// TimeoutSecond bounds every socket read and write (0 = no deadline)
	TimeoutSecond int `envconfig:"TIMEOUT" default:"0"`
	// RetryCount bounds the read-fault retries of one request. 0 means the default,
	// a negative value disables retries.
	RetryCount int `envconfig:"RETRIES" default:"1"`

	// Transport is either "pooled" or "http"
	Transport string `envconfig:"TRANSPORT" default:"pooled"`
	// InsecureSkipVerify disables TLS certificate verification for https endpoints
	InsecureSkipVerify bool `envconfig:"TLS_INSECURE"`

	// Logging configuration
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	TraceRequests bool   `envconfig:"TRACE"`
}

// LoadClientConfig returns explicit with every unset field filled from the V3IO_*
// environment variables, defaults applied and the endpoint normalized
func LoadClientConfig(explicit ClientConfig) (ClientConfig, error) {
	var env ClientConfig
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return ClientConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}

	config := explicit
	if config.Endpoint == "" {
		config.Endpoint = env.Endpoint
	}
	if config.AccessKey == "" {
		config.AccessKey = env.AccessKey
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = env.MaxConnections
	}
	if config.TimeoutSecond == 0 {
		config.TimeoutSecond = env.TimeoutSecond
	}
	if config.RetryCount == 0 {
		config.RetryCount = env.RetryCount
	}
	if config.Transport == "" {
		config.Transport = env.Transport
	}
	if config.LogLevel == "" {
		config.LogLevel = env.LogLevel
	}
	config.InsecureSkipVerify = config.InsecureSkipVerify || env.InsecureSkipVerify
	config.TraceRequests = config.TraceRequests || env.TraceRequests

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return config, nil
}

// ApplyDefaults fills zero values with defaults and normalizes the endpoint
func (c *ClientConfig) ApplyDefaults() {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.RetryCount == 0 {
		c.RetryCount = DefaultRetryCount
	}
	if c.Transport == "" {
		c.Transport = TransportPooled
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Endpoint = NormalizeEndpoint(c.Endpoint)
}

// Retries returns the effective number of read-fault retries
func (c *ClientConfig) Retries() int {
	if c.RetryCount < 0 {
		return 0
	}
	if c.RetryCount == 0 {
		return DefaultRetryCount
	}
	return c.RetryCount
}

// Timeout returns the socket deadline (0 = none)
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// Validate checks the configuration for errors
func (c *ClientConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("no endpoint configured (set %s_API or pass an endpoint)", strings.ToUpper(EnvPrefix))
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.TimeoutSecond)
	}
	if c.Transport != TransportPooled && c.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport %q. must be one of %s, %s", c.Transport, TransportPooled, TransportHTTP)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// NormalizeEndpoint adds the http scheme when none is given and strips trailing slashes
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	if strings.HasPrefix(endpoint, "unix://") {
		return endpoint
	}
	return strings.TrimRight(endpoint, "/")
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	accessKey := "<none>"
	if c.AccessKey != "" {
		accessKey = "<set>"
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Access Key", accessKey)
	addField("Transport", c.Transport)
	addField("TLS Insecure", strconv.FormatBool(c.InsecureSkipVerify))

	// Pool
	addSection("Connection Pool")
	addField("Max Connections", strconv.Itoa(c.MaxConnections))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Retries()))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Trace Requests", strconv.FormatBool(c.TraceRequests))

	return sb.String()
}
