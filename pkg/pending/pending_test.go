package pending_test

import (
	"testing"
	"time"

	"github.com/wanctl/wanctl/pkg/pending"
)

func TestBuffer_QueueThenTakeFresh(t *testing.T) {
	b := pending.New(60 * time.Second)
	if !b.Empty() {
		t.Fatal("Empty() = false on a new buffer, want true")
	}
	b.Queue(300, 30)
	r, ok := b.Take()
	if !ok {
		t.Fatal("Take() ok = false, want true for a fresh entry")
	}
	if r.DownloadBps != 300 || r.UploadBps != 30 {
		t.Errorf("Take() = %+v, want {300 30 ...}", r)
	}
	if !b.Empty() {
		t.Error("Empty() = false after Take(), want true (Take consumes)")
	}
}

func TestBuffer_OverwritesOnRequeue(t *testing.T) {
	b := pending.New(60 * time.Second)
	b.Queue(100, 10)
	b.Queue(200, 20)
	r, ok := b.Take()
	if !ok || r.DownloadBps != 200 {
		t.Fatalf("Take() = %+v ok=%v, want the most recent Queue call to win", r, ok)
	}
}

func TestBuffer_StaleEntryDropped(t *testing.T) {
	b := pending.New(10 * time.Millisecond)
	b.Queue(300, 30)
	time.Sleep(20 * time.Millisecond)
	_, ok := b.Take()
	if ok {
		t.Fatal("Take() ok = true for a stale entry, want false")
	}
	if !b.Empty() {
		t.Error("Empty() = false after taking a stale entry, want true")
	}
}
