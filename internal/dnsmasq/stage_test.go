package dnsmasq

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

func TestWriteStaged_Overwrites(t *testing.T) {
	r := newTestRenderer(t)
	junk := strings.Repeat("stale-directive\n", 10000)
	if err := os.WriteFile(r.Paths.StagedConf, []byte(junk), 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	if err := r.WriteStaged(conf); err != nil {
		t.Fatalf("WriteStaged failed: %v", err)
	}

	got, err := os.ReadFile(r.Paths.StagedConf)
	if err != nil {
		t.Fatal(err)
	}
	want := render(t, r, conf)
	if string(got) != want {
		t.Error("staged file does not match the rendered document")
	}
}

func TestWriteStaged_WaitsForLock(t *testing.T) {
	r := newTestRenderer(t)
	holder, err := os.OpenFile(r.Paths.StagedConf, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer holder.Close()
	if err := lockFile(holder); err != nil {
		t.Skipf("flock not available: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- r.WriteStaged(config.Default())
	}()

	select {
	case err := <-done:
		t.Fatalf("WriteStaged returned while the lock was held: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := unlockFile(holder); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WriteStaged failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WriteStaged did not finish after the lock was released")
	}
}

func TestWriteStaged_OpenError(t *testing.T) {
	r := newTestRenderer(t)
	r.Paths.StagedConf = r.Paths.DropInDir + "/missing/dnsmasq.conf.temp"
	if err := r.WriteStaged(config.Default()); err == nil {
		t.Fatal("expected an error for an unwritable staged path")
	}
}
