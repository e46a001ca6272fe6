// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel_test

import (
	"testing"
	"time"

	"code.hybscloud.com/lpel"
)

func TestMailboxFIFOOrder(t *testing.T) {
	mb := lpel.NewMailbox()

	for i := 0; i < 5; i++ {
		mb.Send(lpel.Msg{Type: lpel.MsgWakeup, FromWorker: i})
	}
	for i := 0; i < 5; i++ {
		msg := mb.Recv()
		if msg.FromWorker != i {
			t.Fatalf("message %d: FromWorker = %d, want %d", i, msg.FromWorker, i)
		}
	}
}

func TestMailboxTryRecvEmpty(t *testing.T) {
	mb := lpel.NewMailbox()
	if _, ok := mb.TryRecv(); ok {
		t.Fatalf("TryRecv on empty mailbox returned ok=true")
	}
	if mb.HasMail() {
		t.Fatalf("HasMail on empty mailbox returned true")
	}

	mb.Send(lpel.Msg{Type: lpel.MsgTerminate})
	if !mb.HasMail() {
		t.Fatalf("HasMail after Send returned false")
	}
	msg, ok := mb.TryRecv()
	if !ok || msg.Type != lpel.MsgTerminate {
		t.Fatalf("TryRecv = %+v, %v, want MsgTerminate, true", msg, ok)
	}
}

// TestMailboxRecvBlocksUntilSend checks that a goroutine parked in Recv
// wakes as soon as a message is available, rather than spinning or never
// returning.
func TestMailboxRecvBlocksUntilSend(t *testing.T) {
	mb := lpel.NewMailbox()
	received := make(chan lpel.Msg, 1)

	go func() { received <- mb.Recv() }()

	select {
	case <-received:
		t.Fatalf("Recv returned before any message was sent")
	case <-time.After(20 * time.Millisecond):
	}

	mb.Send(lpel.Msg{Type: lpel.MsgRequest, FromWorker: 7})

	select {
	case msg := <-received:
		if msg.Type != lpel.MsgRequest || msg.FromWorker != 7 {
			t.Fatalf("Recv() = %+v, want MsgRequest from worker 7", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("Recv never woke up after Send")
	}
}

// TestMailboxCloseWakesBlockedRecv checks that Close unblocks a Recv that
// would otherwise wait forever for a message that never arrives.
func TestMailboxCloseWakesBlockedRecv(t *testing.T) {
	mb := lpel.NewMailbox()
	received := make(chan lpel.Msg, 1)

	go func() { received <- mb.Recv() }()

	time.Sleep(10 * time.Millisecond)
	mb.Close()

	select {
	case msg := <-received:
		if msg.Type != lpel.MsgTerminate {
			t.Fatalf("Recv() after Close = %+v, want MsgTerminate", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("Recv never returned after Close")
	}
}
