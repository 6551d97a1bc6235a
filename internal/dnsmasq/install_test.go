package dnsmasq

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

func newTestInstaller(t *testing.T, mode string) *Installer {
	t.Helper()
	return &Installer{
		Renderer:  newTestRenderer(t),
		Validator: fakeValidator(t, mode),
	}
}

func TestInstall_Success(t *testing.T) {
	in := newTestInstaller(t, "parse")
	paths := in.Renderer.Paths
	conf := config.Default()
	conf.DNS.Upstreams = []string{"9.9.9.9"}

	if err := in.Install(context.Background(), conf, true); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	got, err := os.ReadFile(paths.LiveConf)
	if err != nil {
		t.Fatalf("live config missing: %v", err)
	}
	if string(got) != render(t, in.Renderer, conf) {
		t.Error("live config does not match the rendered document")
	}
	if _, err := os.Stat(paths.StagedConf); !os.IsNotExist(err) {
		t.Error("staged file should have been renamed onto the live path")
	}
}

func TestInstall_RejectedKeepsLiveConfig(t *testing.T) {
	in := newTestInstaller(t, "parse")
	paths := in.Renderer.Paths
	previous := []byte("# previously installed\nport=53\n")
	if err := os.WriteFile(paths.LiveConf, previous, 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	conf.DNS.HostRecord = "pi.lan"
	err := in.Install(context.Background(), conf, true)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *ValidationError, got %v", err)
	}
	if verr.LineText != "host-record=pi.lan" || verr.Line == 0 {
		t.Errorf("error points at line %d %q, want the host record", verr.Line, verr.LineText)
	}
	if !strings.Contains(err.Error(), "host-record=pi.lan") {
		t.Errorf("error message lacks the offending line: %v", err)
	}

	live, rerr := os.ReadFile(paths.LiveConf)
	if rerr != nil {
		t.Fatal(rerr)
	}
	if string(live) != string(previous) {
		t.Error("live config changed after a rejected install")
	}
	if _, err := os.Stat(paths.StagedConf); err != nil {
		t.Errorf("staged file should be kept for inspection: %v", err)
	}
}

func TestInstall_CrashIsRejected(t *testing.T) {
	in := newTestInstaller(t, "crash")
	err := in.Install(context.Background(), config.Default(), true)

	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Outcome.Crashed {
		t.Fatalf("expected a crash rejection, got %v", err)
	}
	if _, err := os.Stat(in.Renderer.Paths.LiveConf); !os.IsNotExist(err) {
		t.Error("nothing should be installed after a crash")
	}
}

func TestInstall_WithoutTest(t *testing.T) {
	in := &Installer{
		Renderer:  newTestRenderer(t),
		Validator: &Validator{Binary: "/nonexistent/dnsmasq"},
	}
	if err := in.Install(context.Background(), config.Default(), false); err != nil {
		t.Fatalf("Install without test failed: %v", err)
	}
	if _, err := os.Stat(in.Renderer.Paths.LiveConf); err != nil {
		t.Errorf("live config missing: %v", err)
	}
}

func TestInstall_EnvironmentError(t *testing.T) {
	in := &Installer{
		Renderer:  newTestRenderer(t),
		Validator: &Validator{Binary: "/nonexistent/dnsmasq"},
	}
	err := in.Install(context.Background(), config.Default(), true)
	if err == nil {
		t.Fatal("expected an error when the resolver cannot be started")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Error("an environment failure must not look like a rejection")
	}
	if _, err := os.Stat(in.Renderer.Paths.LiveConf); !os.IsNotExist(err) {
		t.Error("nothing should be installed")
	}
}

func TestInstall_WarnsAboutMissingInterface(t *testing.T) {
	in := newTestInstaller(t, "parse")
	var asked string
	in.CheckInterface = func(name string) (bool, error) {
		asked = name
		return false, nil
	}

	conf := config.Default()
	conf.DNS.ListeningMode = config.ListenBind
	conf.DNS.Interface = "ghost0"
	if err := in.Install(context.Background(), conf, true); err != nil {
		t.Fatalf("a missing interface must not fail the install: %v", err)
	}
	if asked != "ghost0" {
		t.Errorf("checked interface %q, want ghost0", asked)
	}
}

func TestTest_DoesNotInstall(t *testing.T) {
	in := newTestInstaller(t, "parse")
	if err := in.Test(context.Background(), config.Default()); err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if _, err := os.Stat(in.Renderer.Paths.LiveConf); !os.IsNotExist(err) {
		t.Error("Test must not touch the live config")
	}
}

func TestInstall_RefusesMultilineValue(t *testing.T) {
	in := newTestInstaller(t, "parse")
	paths := in.Renderer.Paths
	previous := []byte("# previously installed\nport=53\n")
	if err := os.WriteFile(paths.LiveConf, previous, 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	conf.DNS.HostRecord = "pi.lan,10.0.0.2\ndhcp-script=/tmp/run.sh"
	err := in.Install(context.Background(), conf, false)
	if !errors.Is(err, config.ErrMultiline) {
		t.Fatalf("expected ErrMultiline, got %v", err)
	}

	live, rerr := os.ReadFile(paths.LiveConf)
	if rerr != nil {
		t.Fatal(rerr)
	}
	if string(live) != string(previous) {
		t.Error("live config changed after a refused install")
	}
	if _, err := os.Stat(paths.StagedConf); !os.IsNotExist(err) {
		t.Error("staged file should not be created for a refused model")
	}
}
