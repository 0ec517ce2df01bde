package config

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pingcap/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Load reads the [bee_test] table from a TOML file. Values may be overridden
// through BEE_TEST_<KEY> environment variables.
func Load(path string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &ConfigError{Reason: "cannot open " + path, Err: err}
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Reason: "cannot parse " + path, Err: errors.Trace(err)}
	}
	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		zap.String("path", path),
		zap.Int("numRuns", cfg.NumRuns),
		zap.Duration("pause", cfg.PauseDuration),
		zap.Int("storageRadius", cfg.StorageRadius),
		zap.String("neighbourhood", cfg.Neighbourhood),
		zap.String("logFile", cfg.LogFile),
		zap.String("nodeURL", cfg.NodeURL))
	return cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// FromViper converts an already populated viper instance into a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	for _, k := range RequiredKeys {
		if !v.IsSet(key(k)) {
			if !v.IsSet(Section) {
				return nil, newKeyError(Section, "section not found", nil)
			}
			return nil, newKeyError(k, "missing required key", nil)
		}
	}

	var (
		cfg Config
		err error
	)
	if cfg.NumRuns, err = parseInt(v.Get(key(KeyNumRuns))); err != nil {
		return nil, newKeyError(KeyNumRuns, "expected an integer", err)
	}
	if cfg.PauseDuration, err = parseSeconds(v.Get(key(KeyPauseDuration))); err != nil {
		return nil, newKeyError(KeyPauseDuration, "expected seconds or a duration", err)
	}
	if cfg.StorageRadius, err = parseInt(v.Get(key(KeyStorageRadius))); err != nil {
		return nil, newKeyError(KeyStorageRadius, "expected an integer", err)
	}
	if cfg.Neighbourhood, err = parseString(v.Get(key(KeyNeighbourhood))); err != nil {
		return nil, newKeyError(KeyNeighbourhood, "expected a string", err)
	}
	if cfg.LogFile, err = parseString(v.Get(key(KeyLogFile))); err != nil {
		return nil, newKeyError(KeyLogFile, "expected a path", err)
	}
	if v.IsSet(key(KeyNodeURL)) {
		if cfg.NodeURL, err = parseString(v.Get(key(KeyNodeURL))); err != nil {
			return nil, newKeyError(KeyNodeURL, "expected a URL", err)
		}
	}
	if v.IsSet(key(KeyRequestTimeout)) {
		if cfg.RequestTimeout, err = parseSeconds(v.Get(key(KeyRequestTimeout))); err != nil {
			return nil, newKeyError(KeyRequestTimeout, "expected seconds or a duration", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func key(k string) string {
	return Section + "." + k
}

// parseSeconds accepts plain numbers as seconds and strings either as numbers
// of seconds or as Go durations ("1500ms").
func parseSeconds(raw any) (time.Duration, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return secondsToDuration(f)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, errors.Trace(err)
		}
		return d, nil
	}
	switch raw.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
	default:
		return 0, errors.Errorf("unsupported type %T", raw)
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return secondsToDuration(f)
}

// parseInt accepts integers and decimal strings. Floats and booleans are
// rejected rather than truncated.
func parseInt(raw any) (int, error) {
	switch x := raw.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, errors.Trace(err)
		}
		return n, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToIntE(x)
	default:
		return 0, errors.Errorf("unsupported type %T", raw)
	}
}

// parseString accepts strings and integers, so neighbourhood = 501 works.
func parseString(raw any) (string, error) {
	switch x := raw.(type) {
	case string:
		return x, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToStringE(x)
	default:
		return "", errors.Errorf("unsupported type %T", raw)
	}
}

func secondsToDuration(f float64) (time.Duration, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > float64(math.MaxInt64)/float64(time.Second) {
		return 0, errors.Errorf("%v seconds is out of range", f)
	}
	return time.Duration(f * float64(time.Second)), nil
}
