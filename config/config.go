// Package config wires flags and environment variables into one viper
// store. Every setting can also be supplied as NIBBLER_<NAME> in the
// environment, with dashes becoming underscores.
package config

import (
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	*viper.Viper
}

func (c *Config) Load(args []string) error {
	c.Viper = viper.New()

	fs := pflag.NewFlagSet("nibbler", pflag.ContinueOnError)
	fs.Bool("debug", false, "debug logging")
	fs.Int("threads", runtime.NumCPU(), "concurrent games during self-play")
	fs.Int("num-games", 10, "number of self-play games")
	fs.Int("depth-limit", 0, "fixed search depth limit; 0 picks per board adaptively")
	fs.Uint64("seed", 0, "seed for tile spawning; 0 seeds randomly")
	fs.String("board", "", "starting board as 16 hex digits, low nibble first")
	fs.String("cpu-profile", "", "file to write a CPU profile to")
	fs.String("mem-profile", "", "file to write a memory profile to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.SetEnvPrefix("nibbler")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	return c.BindPFlags(fs)
}
