package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the tracked markets.
	Markets []string
	// Interval is the candle aggregation interval.
	Interval string
	// Quorum is the minimum number of agreeing strategy votes required to act.
	Quorum int
	// Mode is the order execution mode.
	Mode string
	// StreamURL is the websocket endpoint of the tick stream.
	StreamURL string
	// Replay is the replay session flag.
	Replay bool
	// ReplayDataFilepath is the filepath to the recorded replay ticks.
	ReplayDataFilepath string
	// DBEndpoint is the database connection endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string
	// InitialCapital is the session starting capital.
	InitialCapital float64
	// MaxRiskPerTrade is the fraction of capital risked per trade.
	MaxRiskPerTrade float64
	// MaxPortfolioRisk is the cap on aggregate open risk across markets.
	MaxPortfolioRisk float64
	// StopLossPct is the protective stop distance as a fraction of entry.
	StopLossPct float64
	// TakeProfitPct is the profit target distance as a fraction of entry.
	TakeProfitPct float64

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for trader service"))
	}
	if cfg.Quorum <= 0 {
		errs = errors.Join(errs, fmt.Errorf("quorum must be positive"))
	}
	if cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}

	switch cfg.Replay {
	case true:
		if cfg.ReplayDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("replay data filepath cannot be an empty string"))
		}
	case false:
		if cfg.StreamURL == "" {
			errs = errors.Join(errs, fmt.Errorf("stream url cannot be an empty string"))
		}
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("markets", &cfg.Markets, "the tracked markets")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("interval", &cfg.Interval, "the candle aggregation interval")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("quorum", &cfg.Quorum, "the consensus quorum")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("mode", &cfg.Mode, "the order execution mode")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("streamurl", &cfg.StreamURL, "the tick stream websocket url")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("replay", &cfg.Replay, "the replay flag")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("replaydatafilepath", &cfg.ReplayDataFilepath, "the replay data filepath")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbendpoint", &cfg.DBEndpoint, "the database endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbuser", &cfg.DBUser, "the database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbpass", &cfg.DBPass, "the database pass")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("metricsaddr", &cfg.MetricsAddr, "the metrics listen address")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("initialcapital", &cfg.InitialCapital, "the session starting capital")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("maxriskpertrade", &cfg.MaxRiskPerTrade, "the fraction of capital risked per trade")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("maxportfoliorisk", &cfg.MaxPortfolioRisk, "the aggregate open risk cap")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("stoplosspct", &cfg.StopLossPct, "the protective stop distance")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("takeprofitpct", &cfg.TakeProfitPct, "the profit target distance")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
