package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pingcap/errors"
)

const (
	// Section is the table holding all beetest settings.
	Section = "bee_test"

	DefaultNodeURL = "http://localhost:1633"
	DefaultFile    = "config.toml"
)

// Recognized keys.
const (
	KeyNumRuns        = "num_runs"
	KeyPauseDuration  = "pause_duration"
	KeyStorageRadius  = "storage_radius"
	KeyNeighbourhood  = "neighbourhood"
	KeyLogFile        = "log_file"
	KeyNodeURL        = "node_url"
	KeyRequestTimeout = "request_timeout"
)

// RequiredKeys must be present in every config file.
var RequiredKeys = []string{
	KeyNumRuns,
	KeyPauseDuration,
	KeyStorageRadius,
	KeyNeighbourhood,
	KeyLogFile,
}

// Config is loaded once at startup and never mutated afterwards.
type Config struct {
	NumRuns        int           `json:"num_runs"`
	PauseDuration  time.Duration `json:"pause_duration"`
	StorageRadius  int           `json:"storage_radius"`
	Neighbourhood  string        `json:"neighbourhood"`
	LogFile        string        `json:"log_file"`
	NodeURL        string        `json:"node_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// ConfigError reports a missing or malformed setting. Key is empty when the
// problem is with the file itself.
type ConfigError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %s", e.Key, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "config error: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func newKeyError(key, reason string, err error) *ConfigError {
	return &ConfigError{Key: key, Reason: reason, Err: err}
}

// Validate checks ranges and fills optional defaults.
func (c *Config) Validate() error {
	if c.NumRuns < 1 {
		return newKeyError(KeyNumRuns, fmt.Sprintf("must be at least 1, got %d", c.NumRuns), nil)
	}
	if c.PauseDuration < 0 {
		return newKeyError(KeyPauseDuration, "must not be negative", nil)
	}
	if c.StorageRadius < 0 {
		return newKeyError(KeyStorageRadius, fmt.Sprintf("must not be negative, got %d", c.StorageRadius), nil)
	}
	c.Neighbourhood = strings.TrimSpace(c.Neighbourhood)
	if c.Neighbourhood == "" {
		return newKeyError(KeyNeighbourhood, "must not be empty", nil)
	}
	c.LogFile = strings.TrimSpace(c.LogFile)
	if c.LogFile == "" {
		return newKeyError(KeyLogFile, "must not be empty", nil)
	}
	if c.RequestTimeout < 0 {
		return newKeyError(KeyRequestTimeout, "must not be negative", nil)
	}

	if c.NodeURL == "" {
		c.NodeURL = DefaultNodeURL
	}
	c.NodeURL = strings.TrimRight(c.NodeURL, "/")
	u, err := url.Parse(c.NodeURL)
	if err != nil {
		return newKeyError(KeyNodeURL, "not a valid URL", errors.Trace(err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newKeyError(KeyNodeURL, fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return newKeyError(KeyNodeURL, "missing host", nil)
	}
	return nil
}

// Sample is written by `beetest init`.
const Sample = `[bee_test]
num_runs = 5
pause_duration = 10
storage_radius = 10
neighbourhood = "501c"
log_file = "bee_test_log.csv"
# node_url = "http://localhost:1633"
# request_timeout = "2m"
`
