// Package dnsmasq renders the resolver model into dnsmasq.conf, tests it with
// dnsmasq's own parser and installs it atomically. It also imports the legacy
// static lease and CNAME fragments into the model.
package dnsmasq

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

const (
	// DefaultInterface is used for interface-bound directives when the model
	// does not name an interface.
	DefaultInterface = "eth0"

	// rootTrustAnchor is the 2017-02-02 root zone KSK (key tag 20326).
	rootTrustAnchor = ".,20326,8,2,E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D"

	timestampLayout = "2006-01-02 15:04:05 MST"
)

// Renderer turns a config.Config into dnsmasq's configuration format.
type Renderer struct {
	Paths config.Paths
	// Now stamps the header. Defaults to time.Now.
	Now func() time.Time
}

// NewRenderer returns a Renderer for the given paths.
func NewRenderer(paths config.Paths) *Renderer {
	return &Renderer{Paths: paths.WithDefaults(), Now: time.Now}
}

// Bytes renders conf into memory.
func (r *Renderer) Bytes(conf *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render writes the complete configuration document for conf to out. The
// section order is fixed; the only non-deterministic content is the
// "Last update" timestamp in the header. A model with a multi-line value is
// refused before anything is written.
func (r *Renderer) Render(out io.Writer, conf *config.Config) error {
	if err := conf.CheckSingleLine(); err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	dns := &conf.DNS

	r.writeHeader(w)

	fmt.Fprintf(w, "addn-hosts=%s\n", r.Paths.LocalList)
	fmt.Fprintf(w, "addn-hosts=%s\n", r.Paths.CustomList)
	w.WriteString("\n")

	w.WriteString("# Don't read /etc/resolv.conf. Get upstream servers only from the configuration\n")
	w.WriteString("no-resolv\n")
	w.WriteString("\n")
	w.WriteString("# DNS port to be used\n")
	fmt.Fprintf(w, "port=%d\n", dns.Port)
	if len(dns.Upstreams) > 0 {
		w.WriteString("# List of upstream DNS server\n")
		for _, server := range dns.Upstreams {
			fmt.Fprintf(w, "server=%s\n", server)
		}
		w.WriteString("\n")
	}

	w.WriteString("# Set the size of dnsmasq's cache. The default is 150 names. Setting the cache\n")
	w.WriteString("# size to zero disables caching. Note: huge cache size impacts performance\n")
	fmt.Fprintf(w, "cache-size=%d\n", dns.CacheSize)
	w.WriteString("\n")

	w.WriteString("# Return answers to DNS queries from /etc/hosts and interface-name and\n")
	w.WriteString("# dynamic-host which depend on the interface over which the query was\n")
	w.WriteString("# received. If a name has more than one address associated with it, and\n")
	w.WriteString("# at least one of those addresses is on the same subnet as the interface\n")
	w.WriteString("# to which the query was sent, then return only the address(es) on that\n")
	w.WriteString("# subnet and return all the available addresses otherwise.\n")
	w.WriteString("localise-queries\n")
	w.WriteString("\n")

	// Both branches have the same number of lines so that line numbers
	// reported by dnsmasq do not move when logging is toggled.
	if dns.Logging {
		w.WriteString("# Enable query logging\n")
		w.WriteString("log-queries\n")
		w.WriteString("log-async\n")
	} else {
		w.WriteString("# Disable query logging\n")
		w.WriteString("#log-queries\n")
		w.WriteString("#log-async\n")
	}

	if conf.Files.Log.DNSMasq != "" {
		w.WriteString("# Specify the log file to use\n")
		w.WriteString("# We set this even if logging is disabled to store warnings\n")
		w.WriteString("# and errors in this file. This is useful for debugging.\n")
		fmt.Fprintf(w, "log-facility=%s\n", conf.Files.Log.DNSMasq)
		w.WriteString("\n")
	}

	writeFlags(w, dns)

	if hasDomain(dns.Domain) {
		w.WriteString("# DNS domain for the DNS server\n")
		fmt.Fprintf(w, "domain=%s\n", dns.Domain)
		w.WriteString("\n")
		// With a domain and domain-needed, the domain is purely local: it may
		// be answered from /etc/hosts or DHCP but is never forwarded.
		if dns.DomainNeeded {
			w.WriteString("# Never forward A or AAAA queries for plain names, without\n")
			w.WriteString("# dots or domain parts, to upstream nameservers. If the name\n")
			w.WriteString("# is not known from /etc/hosts or DHCP a NXDOMAIN is returned\n")
			fmt.Fprintf(w, "local=/%s/\n", dns.Domain)
			w.WriteString("\n")
		}
	}

	if dns.HostRecord != "" {
		w.WriteString("# Add A, AAAA and PTR records to the DNS\n")
		fmt.Fprintf(w, "host-record=%s\n", dns.HostRecord)
	}

	iface := interfaceName(dns)
	writeListeningMode(w, dns.ListeningMode, iface)
	w.WriteString("\n")

	if dns.RevServer.Active {
		writeRevServer(w, dns)
	}

	if dns.DHCP.Active {
		writeDHCP(w, &dns.DHCP, iface, r.Paths.LeaseFile)
	}

	if len(dns.CNAMEs) > 0 {
		w.WriteString("# User-defined custom CNAMEs\n")
		for _, cname := range dns.CNAMEs {
			fmt.Fprintf(w, "cname=%s\n", cname)
		}
		w.WriteString("\n")
	}

	writeSpecialDomains(w)

	if dirExists(r.Paths.DropInDir) {
		// The drop-in directory may not exist, e.g. in a container.
		w.WriteString("# Load possible additional user scripts\n")
		fmt.Fprintf(w, "conf-dir=%s\n", r.Paths.DropInDir)
		w.WriteString("\n")
	}

	return w.Flush()
}

func (r *Renderer) writeHeader(w *bufio.Writer) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	w.WriteString("# dnsforge: resolver configuration for dnsmasq\n")
	w.WriteString("#\n")
	w.WriteString("# This file is generated from the structured configuration model.\n\n")
	w.WriteString("###############################################################################\n")
	w.WriteString("#                 FILE AUTOMATICALLY POPULATED BY DNSFORGE                    #\n")
	w.WriteString("#  ANY CHANGES MADE TO THIS FILE WILL BE LOST WHEN THE CONFIGURATION CHANGES  #\n")
	w.WriteString("#                                                                             #\n")
	w.WriteString("#        IF YOU WISH TO CHANGE THE UPSTREAM SERVERS, CHANGE THEM WITH:        #\n")
	w.WriteString("#                  dnsforge config set dns.upstreams '[...]'                  #\n")
	w.WriteString("#                         and reinstall the config                            #\n")
	w.WriteString("#                                                                             #\n")
	w.WriteString("#                                                                             #\n")
	w.WriteString("#        ANY OTHER CHANGES SHOULD BE MADE IN A SEPARATE CONFIG FILE           #\n")
	w.WriteString("#                    WITHIN /etc/dnsmasq.d/yourname.conf                      #\n")
	w.WriteString("#                                                                             #\n")
	fmt.Fprintf(w, "#                      Last update: %-42s#\n", now().Format(timestampLayout))
	w.WriteString("###############################################################################\n\n")
}

func writeFlags(w *bufio.Writer, dns *config.DNSConfig) {
	if dns.BogusPriv {
		w.WriteString("# Bogus private reverse lookups. All reverse lookups for private IP\n")
		w.WriteString("# ranges (ie 192.168.x.x, etc) which are not found in /etc/hosts or the\n")
		w.WriteString("# DHCP leases file are answered with NXDOMAIN rather than being forwarded\n")
		w.WriteString("bogus-priv\n")
		w.WriteString("\n")
	}

	if dns.DomainNeeded {
		w.WriteString("# Never forward A or AAAA queries for plain names, without dots or\n")
		w.WriteString("# domain parts, to upstream nameservers\n")
		w.WriteString("domain-needed\n")
		w.WriteString("\n")
	}

	if dns.ExpandHosts {
		w.WriteString("# Add the domain to simple names (without a period) in /etc/hosts in\n")
		w.WriteString("# the same way as for DHCP-derived names\n")
		w.WriteString("expand-hosts\n")
		w.WriteString("\n")
	}

	if dns.DNSSEC {
		w.WriteString("# Use DNSSEC\n")
		w.WriteString("dnssec\n")
		w.WriteString("# 2017-02-02 root zone trust anchor\n")
		fmt.Fprintf(w, "trust-anchor=%s\n", rootTrustAnchor)
		w.WriteString("\n")
	}
}

func writeListeningMode(w *bufio.Writer, mode config.ListeningMode, iface string) {
	switch mode {
	case config.ListenAll:
		w.WriteString("# Listen on all interfaces, permit all origins\n")
		w.WriteString("except-interface=nonexisting\n")
	case config.ListenSingle:
		w.WriteString("# Listen on one interface\n")
		fmt.Fprintf(w, "interface=%s\n", iface)
	case config.ListenBind:
		w.WriteString("# Bind to one interface\n")
		fmt.Fprintf(w, "interface=%s\n", iface)
		w.WriteString("bind-interfaces\n")
	default:
		w.WriteString("# Only respond to queries from devices that are at most one hop away (local devices)\n")
		w.WriteString("local-service\n")
	}
}

func writeRevServer(w *bufio.Writer, dns *config.DNSConfig) {
	rev := &dns.RevServer
	w.WriteString("# Reverse server setting\n")
	fmt.Fprintf(w, "rev-server=%s,%s\n", rev.CIDR, rev.Target)

	// Queries for the local domain go to the same destination.
	if rev.Domain != "" {
		fmt.Fprintf(w, "server=/%s/%s\n", rev.Domain, rev.Target)
	}

	// Unqualified names are forwarded only when domain-needed is off.
	if !dns.DomainNeeded {
		fmt.Fprintf(w, "server=//%s\n", rev.Target)
	}
	w.WriteString("\n")
}

func writeDHCP(w *bufio.Writer, dhcp *config.DHCPConfig, iface, leaseFile string) {
	w.WriteString("# DHCP server setting\n")
	w.WriteString("dhcp-authoritative\n")
	fmt.Fprintf(w, "dhcp-leasefile=%s\n", leaseFile)
	if dhcp.LeaseTime != "" {
		fmt.Fprintf(w, "dhcp-range=%s,%s,%s\n", dhcp.Start, dhcp.End, dhcp.LeaseTime)
	} else {
		fmt.Fprintf(w, "dhcp-range=%s,%s\n", dhcp.Start, dhcp.End)
	}
	fmt.Fprintf(w, "dhcp-option=option:router,%s\n", dhcp.Router)

	if dhcp.RapidCommit {
		w.WriteString("dhcp-rapid-commit\n")
	}

	if dhcp.IPv6 {
		w.WriteString("dhcp-option=option6:dns-server,[::]\n")
		fmt.Fprintf(w, "dhcp-range=::,constructor:%s,ra-names,ra-stateless,64\n", iface)
	}
	w.WriteString("\n")

	if len(dhcp.Hosts) > 0 {
		w.WriteString("# Per host parameters for the DHCP server\n")
		for _, host := range dhcp.Hosts {
			fmt.Fprintf(w, "dhcp-host=%s\n", host)
		}
		w.WriteString("\n")
	}
}

func writeSpecialDomains(w *bufio.Writer) {
	w.WriteString("# RFC 6761: Caching DNS servers SHOULD recognize\n")
	w.WriteString("#     test, localhost, invalid\n")
	w.WriteString("# names as special and SHOULD NOT attempt to look up NS records for them, or\n")
	w.WriteString("# otherwise query authoritative DNS servers in an attempt to resolve these\n")
	w.WriteString("# names.\n")
	w.WriteString("server=/test/\n")
	w.WriteString("server=/localhost/\n")
	w.WriteString("server=/invalid/\n")
	w.WriteString("\n")
	w.WriteString("# The same RFC requests something similar for\n")
	w.WriteString("#     10.in-addr.arpa.      21.172.in-addr.arpa.  27.172.in-addr.arpa.\n")
	w.WriteString("#     16.172.in-addr.arpa.  22.172.in-addr.arpa.  28.172.in-addr.arpa.\n")
	w.WriteString("#     17.172.in-addr.arpa.  23.172.in-addr.arpa.  29.172.in-addr.arpa.\n")
	w.WriteString("#     18.172.in-addr.arpa.  24.172.in-addr.arpa.  30.172.in-addr.arpa.\n")
	w.WriteString("#     19.172.in-addr.arpa.  25.172.in-addr.arpa.  31.172.in-addr.arpa.\n")
	w.WriteString("#     20.172.in-addr.arpa.  26.172.in-addr.arpa.  168.192.in-addr.arpa.\n")
	w.WriteString("# This is covered by the dnsmasq option \"bogus-priv\" above\n")
	w.WriteString("# (if enabled!) as this option also covers IPv6.\n")
	w.WriteString("\n")
	w.WriteString("# OpenWRT furthermore blocks    bind, local, onion    domains\n")
	w.WriteString("# see https://git.openwrt.org/?p=openwrt/openwrt.git;a=blob_plain;f=package/network/services/dnsmasq/files/rfc6761.conf;hb=HEAD\n")
	w.WriteString("# and https://www.iana.org/assignments/special-use-domain-names/special-use-domain-names.xhtml\n")
	w.WriteString("# The \".local\" rule is left out on purpose, mDNS owns that domain.\n")
	w.WriteString("server=/bind/\n")
	w.WriteString("server=/onion/\n")
	w.WriteString("\n")
}

// hasDomain reports whether domain is set; "none" means unset.
func hasDomain(domain string) bool {
	return domain != "" && !strings.EqualFold(domain, "none")
}

func interfaceName(dns *config.DNSConfig) string {
	if dns.Interface == "" {
		return DefaultInterface
	}
	return dns.Interface
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
