package dnsmasq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mirkobrombin/dnsforge/internal/config"
	"github.com/mirkobrombin/dnsforge/internal/logger"
)

// BackupSuffix is appended to a legacy file once it has been imported.
const BackupSuffix = ".bck"

// LegacyImporter moves one key of a flat key=value fragment into a list of
// the structured model.
type LegacyImporter struct {
	Name   string // human-readable list name used in logs
	Path   string
	Key    string // e.g. "dhcp-host="
	Target func(conf *config.Config) *[]string
	Logger *logger.Logger
}

// StaticLeasesImporter imports dhcp-host= lines into dns.dhcp.hosts.
func StaticLeasesImporter(paths config.Paths, log *logger.Logger) *LegacyImporter {
	return &LegacyImporter{
		Name:   "dns.dhcp.hosts",
		Path:   paths.StaticLeases,
		Key:    "dhcp-host=",
		Target: func(conf *config.Config) *[]string { return &conf.DNS.DHCP.Hosts },
		Logger: log,
	}
}

// CNAMEImporter imports cname= lines into dns.cnames.
func CNAMEImporter(paths config.Paths, log *logger.Logger) *LegacyImporter {
	return &LegacyImporter{
		Name:   "dns.cnames",
		Path:   paths.CNAMEs,
		Key:    "cname=",
		Target: func(conf *config.Config) *[]string { return &conf.DNS.CNAMEs },
		Logger: log,
	}
}

// Import appends every matching value of the legacy file to the model and
// retires the file by renaming it to Path+BackupSuffix. It returns the number
// of imported entries. A missing file is not an error. Failing to rename is
// only logged, the entries are already in conf.
func (li *LegacyImporter) Import(conf *config.Config) (int, error) {
	log := li.Logger
	if log == nil {
		log = logger.Nop()
	}

	if _, err := os.Stat(li.Path); os.IsNotExist(err) {
		return 0, nil
	}

	f, err := os.Open(li.Path)
	if err != nil {
		return 0, fmt.Errorf("cannot read %s, unable to import %s: %w", li.Path, li.Name, err)
	}

	// Lines have no length limit, a long comment must not abort the import.
	var values []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if strings.Contains(line, li.Key) {
			_, value, _ := strings.Cut(line, "=")
			values = append(values, strings.TrimSpace(value))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return 0, fmt.Errorf("cannot read %s, unable to import %s: %w", li.Path, li.Name, err)
		}
	}

	list := li.Target(conf)
	for _, value := range values {
		*list = append(*list, value)
		log.Debugf("%s: Setting %s[%d] = %s", li.Path, li.Name, len(*list)-1, value)
	}

	if err := f.Close(); err != nil {
		return len(values), fmt.Errorf("cannot close %s: %w", li.Path, err)
	}

	target := li.Path + BackupSuffix
	log.Infof("Moving %s to %s", li.Path, target)
	if err := os.Rename(li.Path, target); err != nil {
		log.Warnf("Unable to move %s to %s: %v", li.Path, target, err)
	}

	return len(values), nil
}

// ImportLegacy runs the static lease and CNAME importers. Each file is
// handled independently; errors of both are joined.
func ImportLegacy(conf *config.Config, paths config.Paths, log *logger.Logger) (int, error) {
	var errs []error
	total := 0
	for _, li := range []*LegacyImporter{
		StaticLeasesImporter(paths, log),
		CNAMEImporter(paths, log),
	} {
		n, err := li.Import(conf)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
