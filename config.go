// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"fmt"

	"code.hybscloud.com/lpel/lpelmon"
)

// Mapping location sentinels, mirroring LPEL_MAP_OTHERS / LPEL_MAP_MASTER.
// MapOthers lets the backend place the task on whichever worker it
// prefers; MapWrapper gives the task a dedicated wrapper goroutine
// outside the worker pool entirely (see TaskCreate), the home for
// "others" threads such as blocking I/O tasks.
const (
	MapOthers  = -1
	MapWrapper = -2
	MapMaster  = 0
)

// Config configures a Runtime. It is deliberately small and
// dependency-free; package lpelcfg layers viper/pflag-sourced
// configuration on top and produces one of these before calling Start.
type Config struct {
	// Backend names a registered scheduling dialect ("decen" or "hrc").
	// The corresponding package must be blank-imported for the name to
	// resolve; see RegisterBackend.
	Backend string

	// NumWorkers is the number of worker goroutines to run. Must be >=
	// 1. For the HRC backend this excludes the master goroutine.
	NumWorkers int

	// ProcWorkers and ProcOthers mirror the original's processor-count
	// hints. Validate rejects negative values; nothing else in this
	// module reads them, and no CPU pinning is done from them.
	ProcWorkers int
	ProcOthers  int

	Flags Flag

	// Mon, if non-nil, is called into at worker/task/stream lifecycle
	// points. Leave nil to disable monitoring entirely.
	Mon *lpelmon.Table
}

// DefaultConfig returns a Config with a single worker and the decen
// backend. It does not size NumWorkers from the CPU count; callers that
// want one worker per CPU set NumWorkers from GetNumCores themselves.
func DefaultConfig() Config {
	return Config{
		Backend:    "decen",
		NumWorkers: 1,
	}
}

// Validate reports an error, wrapped as a *StatusError with Status
// StatusInvalid, if cfg cannot be started.
func (cfg Config) Validate() error {
	if cfg.NumWorkers < 1 {
		return newStatusError("Config.Validate", StatusInvalid,
			fmt.Errorf("NumWorkers must be >= 1, got %d", cfg.NumWorkers))
	}
	if cfg.Backend == "" {
		return newStatusError("Config.Validate", StatusInvalid,
			fmt.Errorf("Backend must be set"))
	}
	if cfg.ProcWorkers < 0 || cfg.ProcOthers < 0 {
		return newStatusError("Config.Validate", StatusInvalid,
			fmt.Errorf("ProcWorkers and ProcOthers must be >= 0"))
	}
	if cfg.Flags&FlagExclusive != 0 && cfg.Flags&FlagPinned == 0 {
		return newStatusError("Config.Validate", StatusInvalid,
			fmt.Errorf("FlagExclusive requires FlagPinned"))
	}
	return nil
}
