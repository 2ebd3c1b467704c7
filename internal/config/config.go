// Package config loads the simulation's runtime configuration: defaults,
// an optional config.yaml, SIM_-prefixed environment variables, and
// command-line flags, in that order of increasing precedence, the way
// spf13/viper is conventionally layered in the pack this codebase is
// grounded on.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is every knob the spec leaves open ("Configuration of port and
// tick cadence is out of core scope").
type Config struct {
	ListenAddr         string
	TickInterval       time.Duration
	CommandDrainWindow time.Duration
	CommandPollYield   time.Duration
	BroadcastRingCap   int
	TradeLogPath       string

	RandomWalkers  int
	TrendFollowers int
	MeanReverters  int
	MarketMakers   int
}

// Load builds a Config from defaults, config.yaml (if present), SIM_
// environment variables and flags already registered on the default
// pflag.CommandLine flag set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotFound(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return Config{}, err
	}

	return Config{
		ListenAddr:         v.GetString("listen_addr"),
		TickInterval:       v.GetDuration("tick_interval"),
		CommandDrainWindow: v.GetDuration("command_drain_window"),
		CommandPollYield:   v.GetDuration("command_poll_yield"),
		BroadcastRingCap:   v.GetInt("broadcast_ring_capacity"),
		TradeLogPath:       v.GetString("trade_log_path"),
		RandomWalkers:      v.GetInt("agents.random_walkers"),
		TrendFollowers:     v.GetInt("agents.trend_followers"),
		MeanReverters:      v.GetInt("agents.mean_reverters"),
		MarketMakers:       v.GetInt("agents.market_makers"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "127.0.0.1:3000")
	v.SetDefault("tick_interval", 100*time.Millisecond)
	v.SetDefault("command_drain_window", 10*time.Millisecond)
	v.SetDefault("command_poll_yield", time.Millisecond)
	v.SetDefault("broadcast_ring_capacity", 100)
	v.SetDefault("trade_log_path", "trades.csv")
	v.SetDefault("agents.random_walkers", 10)
	v.SetDefault("agents.trend_followers", 5)
	v.SetDefault("agents.mean_reverters", 5)
	v.SetDefault("agents.market_makers", 5)
}
