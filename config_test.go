// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/lpel"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  lpel.Config
		ok   bool
	}{
		{"default", lpel.DefaultConfig(), true},
		{"zero workers", lpel.Config{Backend: "decen"}, false},
		{"no backend", lpel.Config{NumWorkers: 1}, false},
		{"negative proc hint", lpel.Config{Backend: "decen", NumWorkers: 1, ProcWorkers: -1}, false},
		{"exclusive without pinned", lpel.Config{Backend: "decen", NumWorkers: 1, Flags: lpel.FlagExclusive}, false},
		{"exclusive with pinned", lpel.Config{Backend: "decen", NumWorkers: 1, Flags: lpel.FlagExclusive | lpel.FlagPinned}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !c.ok {
				if err == nil {
					t.Fatalf("Validate() = nil, want invalid-status error")
				}
				var serr *lpel.StatusError
				if !errors.As(err, &serr) || serr.Status != lpel.StatusInvalid {
					t.Fatalf("Validate() = %v, want *StatusError with StatusInvalid", err)
				}
			}
		})
	}
}

func TestInitRejectsUnknownBackend(t *testing.T) {
	cfg := lpel.Config{Backend: "no-such-dialect", NumWorkers: 1}
	err := lpel.Init(cfg)
	if !errors.Is(err, lpel.ErrUnknownBackend) {
		t.Fatalf("Init with unknown backend = %v, want ErrUnknownBackend", err)
	}
}
