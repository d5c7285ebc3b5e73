package wanconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wanctl/wanctl/pkg/wanconfig"
)

func TestWatchFile_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wan.yaml")
	if err := os.WriteFile(path, []byte("wan_name: primary\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	fired := make(chan struct{}, 4)
	w, err := wanconfig.WatchFile(path, zerolog.Nop(), func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("wan_name: secondary\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called after a write to the watched file")
	}
}

func TestWatchFile_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wan.yaml")
	if err := os.WriteFile(path, []byte("wan_name: primary\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	sibling := filepath.Join(dir, "unrelated.txt")

	fired := make(chan struct{}, 4)
	w, err := wanconfig.WatchFile(path, zerolog.Nop(), func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(sibling, []byte("noise"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("onChange fired for a write to an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
