// Package hrc implements LPEL's centralized scheduling dialect: a single
// master goroutine holds every ready task in a binary max-heap ordered by
// priority, and idle workers request a task from the master rather than
// owning a queue of their own. Priority is recomputed from how much
// input is waiting and how much output is still unread, using one of the
// same sixteen priority functions as the original (see priority.go).
//
// Importing this package registers it under the name "hrc" with package
// lpel; set Config.Backend = "hrc" to select it.
package hrc

import "code.hybscloud.com/lpel"

func init() {
	lpel.RegisterBackend("hrc", &backend{})
}
