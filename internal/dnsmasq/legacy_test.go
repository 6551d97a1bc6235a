package dnsmasq

import (
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

func TestLegacyImport_StaticLeases(t *testing.T) {
	paths := testPaths(t)
	content := "dhcp-host=aa:bb:cc:dd:ee:ff,host1\nsome-other=value\n"
	if err := os.WriteFile(paths.StaticLeases, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	li := StaticLeasesImporter(paths, nil)
	n, err := li.Import(conf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 1 {
		t.Errorf("imported %d entries, want 1", n)
	}
	if want := []string{"aa:bb:cc:dd:ee:ff,host1"}; !reflect.DeepEqual(conf.DNS.DHCP.Hosts, want) {
		t.Errorf("hosts = %q, want %q", conf.DNS.DHCP.Hosts, want)
	}

	if _, err := os.Stat(paths.StaticLeases); !os.IsNotExist(err) {
		t.Error("legacy file still present at its original path")
	}
	if _, err := os.Stat(paths.StaticLeases + BackupSuffix); err != nil {
		t.Errorf("backup file missing: %v", err)
	}

	// Second run: the file is gone, nothing happens.
	n, err = li.Import(conf)
	if err != nil || n != 0 {
		t.Errorf("second import = %d, %v; want 0, nil", n, err)
	}
	if len(conf.DNS.DHCP.Hosts) != 1 {
		t.Errorf("second import changed the model: %q", conf.DNS.DHCP.Hosts)
	}
}

func TestLegacyImport_CNAMEsTrimAndKeepDuplicates(t *testing.T) {
	paths := testPaths(t)
	content := "# custom cnames\ncname=  a.lan,b.lan  \n\ncname=a.lan,b.lan\ncname=c.lan,d.lan=x\t\n"
	if err := os.WriteFile(paths.CNAMEs, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	conf.DNS.CNAMEs = []string{"existing.lan,target.lan"}
	if _, err := CNAMEImporter(paths, nil).Import(conf); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	want := []string{"existing.lan,target.lan", "a.lan,b.lan", "a.lan,b.lan", "c.lan,d.lan=x"}
	if !reflect.DeepEqual(conf.DNS.CNAMEs, want) {
		t.Errorf("cnames = %q, want %q", conf.DNS.CNAMEs, want)
	}
}

func TestLegacyImport_NoMatchesStillRetiresFile(t *testing.T) {
	paths := testPaths(t)
	if err := os.WriteFile(paths.CNAMEs, []byte("address=/x/1.2.3.4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	conf := config.Default()
	if n, err := CNAMEImporter(paths, nil).Import(conf); err != nil || n != 0 {
		t.Fatalf("Import = %d, %v; want 0, nil", n, err)
	}
	if _, err := os.Stat(paths.CNAMEs + BackupSuffix); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
}

func TestLegacyImport_Missing(t *testing.T) {
	paths := testPaths(t)
	conf := config.Default()
	n, err := ImportLegacy(conf, paths, nil)
	if err != nil || n != 0 {
		t.Fatalf("ImportLegacy = %d, %v; want 0, nil", n, err)
	}
}

func TestLegacyImport_Unreadable(t *testing.T) {
	paths := testPaths(t)
	// A directory exists but cannot be scanned as a file.
	if err := os.Mkdir(paths.StaticLeases, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.CNAMEs, []byte("cname=a,b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	n, err := ImportLegacy(conf, paths, nil)
	if err == nil {
		t.Fatal("expected an error for the unreadable lease file")
	}
	if n != 1 || len(conf.DNS.CNAMEs) != 1 {
		t.Errorf("the CNAME file should still be imported, got n=%d cnames=%q", n, conf.DNS.CNAMEs)
	}
	if len(conf.DNS.DHCP.Hosts) != 0 {
		t.Errorf("hosts = %q, want none", conf.DNS.DHCP.Hosts)
	}
}

func TestLegacyImport_LongLines(t *testing.T) {
	paths := testPaths(t)
	longHost := "dhcp-host=aa:bb:cc:dd:ee:ff,host1," + strings.Repeat("x", 100*1024)
	content := "dhcp-host=11:22:33:44:55:66,host0\n" +
		"# " + strings.Repeat("c", 70*1024) + "\n" +
		longHost + "\n" +
		"dhcp-host=66:55:44:33:22:11,host2"
	if err := os.WriteFile(paths.StaticLeases, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	conf := config.Default()
	n, err := StaticLeasesImporter(paths, nil).Import(conf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d entries, want 3", n)
	}
	hosts := conf.DNS.DHCP.Hosts
	if hosts[0] != "11:22:33:44:55:66,host0" || hosts[2] != "66:55:44:33:22:11,host2" {
		t.Errorf("unexpected hosts around the long line: %q, %q", hosts[0], hosts[2])
	}
	if hosts[1] != strings.TrimPrefix(longHost, "dhcp-host=") {
		t.Errorf("long entry truncated to %d bytes", len(hosts[1]))
	}
}
