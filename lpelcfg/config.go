// Package lpelcfg loads an lpel.Config from command-line flags, a
// config file, and the environment, using pflag and viper -- the
// host-facing configuration layer the core lpel package deliberately
// stays free of (see lpel.Config's doc comment). Programmatic
// construction of lpel.Config directly remains fully supported and is
// what the core package's own tests use.
package lpelcfg

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"code.hybscloud.com/lpel"
)

// Keys are the viper/flag names this package recognizes. A host embeds
// them into its own flag set or config file under these names (or an
// LPEL_ prefixed environment variable, e.g. LPEL_NUM_WORKERS).
const (
	KeyBackend     = "backend"
	KeyNumWorkers  = "num-workers"
	KeyProcWorkers = "proc-workers"
	KeyProcOthers  = "proc-others"
)

// RegisterFlags adds this package's flags to fs with lpel.DefaultConfig
// values as defaults. Call before fs.Parse.
func RegisterFlags(fs *pflag.FlagSet) {
	def := lpel.DefaultConfig()
	fs.String(KeyBackend, def.Backend, "scheduling dialect: decen or hrc")
	fs.Int(KeyNumWorkers, def.NumWorkers, "number of worker goroutines")
	fs.Int(KeyProcWorkers, def.ProcWorkers, "processor hint for worker pinning (0 = automaxprocs decides)")
	fs.Int(KeyProcOthers, def.ProcOthers, "processor hint for non-worker goroutines (0 = automaxprocs decides)")
}

// Load builds an lpel.Config from viper's merged view of flags, an
// optional config file, and LPEL_-prefixed environment variables, then
// validates it via lpel.Config.Validate.
//
// fs should already have been parsed (RegisterFlags + fs.Parse); v may
// be a fresh *viper.Viper or one the caller has already pointed at a
// config file with v.SetConfigFile/v.ReadInConfig.
func Load(v *viper.Viper, fs *pflag.FlagSet) (lpel.Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("LPEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return lpel.Config{}, err
		}
	}

	cfg := lpel.Config{
		Backend:     v.GetString(KeyBackend),
		NumWorkers:  v.GetInt(KeyNumWorkers),
		ProcWorkers: v.GetInt(KeyProcWorkers),
		ProcOthers:  v.GetInt(KeyProcOthers),
	}
	if err := cfg.Validate(); err != nil {
		return lpel.Config{}, err
	}
	return cfg, nil
}
