package rebound

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	config    = _rbconfig{}
)

// _rbconfig is a "hidden" struct, just use `rbConfig`
type _rbconfig struct {
	outputDir         string
	verbose           bool
	defaultIntegrator string
}

func (c _rbconfig) String() string {
	return fmt.Sprintf("[rebound:config] output: %s integrator: %s", c.outputDir, c.defaultIntegrator)
}

// rbConfig returns the engine configuration, reading $REBOUND_CONFIG/conf.toml once.
// A missing environment variable or file falls back to the defaults, so the library is
// usable without any setup.
func rbConfig() _rbconfig {
	if cfgLoaded {
		return config
	}
	config = _rbconfig{outputDir: ".", verbose: false, defaultIntegrator: "ias15"}
	cfgLoaded = true
	confPath := os.Getenv("REBOUND_CONFIG")
	if confPath == "" {
		return config
	}
	viper.SetConfigName("conf")
	viper.AddConfigPath(confPath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("[rebound:warning] %s/conf.toml not found, using defaults\n", confPath)
		return config
	}
	if dir := viper.GetString("general.output_path"); dir != "" {
		config.outputDir = dir
	}
	config.verbose = viper.GetBool("general.verbose")
	if integ := viper.GetString("integrator.default"); integ != "" {
		config.defaultIntegrator = integ
	}
	return config
}
