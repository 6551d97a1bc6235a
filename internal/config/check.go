package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMultiline is returned for values that would span more than one line of
// the rendered resolver config.
var ErrMultiline = errors.New("value must not contain line breaks")

type field struct {
	key   string
	value string
}

// textFields lists every string that ends up in the rendered config, keyed
// by its dotted path.
func (conf *Config) textFields() []field {
	dns := &conf.DNS
	fields := []field{
		{"dns.domain", dns.Domain},
		{"dns.host_record", dns.HostRecord},
		{"dns.interface", dns.Interface},
		{"dns.rev_server.cidr", dns.RevServer.CIDR},
		{"dns.rev_server.target", dns.RevServer.Target},
		{"dns.rev_server.domain", dns.RevServer.Domain},
		{"dns.dhcp.start", dns.DHCP.Start},
		{"dns.dhcp.end", dns.DHCP.End},
		{"dns.dhcp.router", dns.DHCP.Router},
		{"dns.dhcp.lease_time", dns.DHCP.LeaseTime},
		{"files.log.dnsmasq", conf.Files.Log.DNSMasq},
	}
	for key, list := range map[string][]string{
		"dns.upstreams":  dns.Upstreams,
		"dns.cnames":     dns.CNAMEs,
		"dns.dhcp.hosts": dns.DHCP.Hosts,
	} {
		for i, v := range list {
			fields = append(fields, field{fmt.Sprintf("%s.%d", key, i), v})
		}
	}
	return fields
}

// CheckSingleLine makes sure no value can add lines, and so directives, to
// the rendered config.
func (conf *Config) CheckSingleLine() error {
	for _, f := range conf.textFields() {
		if strings.ContainsAny(f.value, "\r\n") {
			return fmt.Errorf("config key %q: %w", f.key, ErrMultiline)
		}
	}
	return nil
}
