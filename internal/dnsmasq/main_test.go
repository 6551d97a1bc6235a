package dnsmasq

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

// fakeResolverEnv makes the test binary behave like "dnsmasq --test".
const fakeResolverEnv = "DNSFORGE_FAKE_RESOLVER"

func TestMain(m *testing.M) {
	if mode := os.Getenv(fakeResolverEnv); mode != "" {
		os.Exit(fakeResolver(mode, os.Args))
	}
	os.Exit(m.Run())
}

var knownDirectives = map[string]bool{
	"addn-hosts": true, "no-resolv": true, "port": true, "server": true,
	"cache-size": true, "localise-queries": true, "log-queries": true,
	"log-async": true, "log-facility": true, "bogus-priv": true,
	"domain-needed": true, "expand-hosts": true, "dnssec": true,
	"trust-anchor": true, "domain": true, "local": true, "host-record": true,
	"local-service": true, "except-interface": true, "interface": true,
	"bind-interfaces": true, "rev-server": true, "dhcp-authoritative": true,
	"dhcp-leasefile": true, "dhcp-range": true, "dhcp-option": true,
	"dhcp-rapid-commit": true, "dhcp-host": true, "cname": true, "conf-dir": true,
}

// fakeResolver mimics the parts of dnsmasq's option parser the validator
// relies on: unknown directives and host records without an address are
// reported as "bad option at line N of F" with exit code 1.
func fakeResolver(mode string, args []string) int {
	if len(args) != 3 || args[0] != "X" || args[2] != "--test" || !strings.HasPrefix(args[1], "--conf-file=") {
		fmt.Fprintf(os.Stderr, "unexpected arguments %q\n", args)
		return 3
	}
	path := strings.TrimPrefix(args[1], "--conf-file=")

	switch mode {
	case "crash":
		syscall.Kill(os.Getpid(), syscall.SIGKILL)
		time.Sleep(time.Second)
		return 0
	case "chatty":
		fmt.Fprintln(os.Stderr, "dnsmasq: first message")
		time.Sleep(200 * time.Millisecond)
		fmt.Fprintln(os.Stdout, "\ndnsmasq: last message")
		return 1
	case "ok-with-code":
		return 0
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\ndnsmasq: cannot read %s: %v\n", path, err)
		return 1
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, _ := strings.Cut(line, "=")
		if !knownDirectives[key] || (key == "host-record" && !hasAddress(value)) {
			fmt.Fprintf(os.Stderr, "\ndnsmasq: bad option at line %d of %s\n", n, path)
			return 1
		}
	}
	return 0
}

// hasAddress reports whether a host-record value names at least one address.
func hasAddress(value string) bool {
	for _, part := range strings.Split(value, ",") {
		if net.ParseIP(strings.TrimSpace(part)) != nil {
			return true
		}
	}
	return false
}

// fakeValidator returns a Validator that re-executes the test binary as a
// fake resolver in the given mode.
func fakeValidator(t *testing.T, mode string) *Validator {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("Failed to locate test binary: %v", err)
	}
	return &Validator{
		Binary: exe,
		Env:    append(os.Environ(), fakeResolverEnv+"="+mode),
	}
}

// testPaths places every well-known file inside a fresh temp dir. The
// drop-in directory is not created.
func testPaths(t *testing.T) config.Paths {
	t.Helper()
	dir := t.TempDir()
	return config.Paths{
		LiveConf:     filepath.Join(dir, "dnsmasq.conf"),
		StagedConf:   filepath.Join(dir, "dnsmasq.conf.temp"),
		LocalList:    filepath.Join(dir, "local.list"),
		CustomList:   filepath.Join(dir, "custom.list"),
		LeaseFile:    filepath.Join(dir, "dhcp.leases"),
		StaticLeases: filepath.Join(dir, "04-pihole-static-dhcp.conf"),
		CNAMEs:       filepath.Join(dir, "05-pihole-custom-cname.conf"),
		DropInDir:    filepath.Join(dir, "dnsmasq.d"),
	}
}

func fixedClock(ts string) func() time.Time {
	return func() time.Time {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			panic(err)
		}
		return t
	}
}
