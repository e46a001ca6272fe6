package lpelcfg_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/lpel"
	"code.hybscloud.com/lpel/lpelcfg"
)

func TestLoadDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	lpelcfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := lpelcfg.Load(viper.New(), fs)
	require.NoError(t, err)
	require.Equal(t, lpel.DefaultConfig().Backend, cfg.Backend)
	require.Equal(t, lpel.DefaultConfig().NumWorkers, cfg.NumWorkers)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	lpelcfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--backend", "hrc", "--num-workers", "6"}))

	cfg, err := lpelcfg.Load(viper.New(), fs)
	require.NoError(t, err)
	require.Equal(t, "hrc", cfg.Backend)
	require.Equal(t, 6, cfg.NumWorkers)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("LPEL_NUM_WORKERS", "5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	lpelcfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := lpelcfg.Load(viper.New(), fs)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.NumWorkers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	lpelcfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--num-workers", "0"}))

	_, err := lpelcfg.Load(viper.New(), fs)
	require.Error(t, err)

	var serr *lpel.StatusError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, lpel.StatusInvalid, serr.Status)
}
