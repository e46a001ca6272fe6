// Package decen implements LPEL's fully decentralized scheduling dialect:
// every worker owns its ready queue outright, there is no master
// goroutine or shared run queue, and a blocked task is handed back to its
// owning worker (not stolen by whichever worker happens to be idle) when
// it becomes ready again. Migration between workers is a deliberate
// placement decision (see package placement), not a side effect of
// scheduling.
//
// Importing this package registers it under the name "decen" with
// package lpel (see RegisterBackend); set Config.Backend = "decen" to
// select it.
package decen

import "code.hybscloud.com/lpel"

func init() {
	lpel.RegisterBackend("decen", &backend{})
}
