package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ListeningMode selects the interfaces the resolver accepts queries on.
type ListeningMode int

const (
	// ListenLocal answers only devices at most one hop away.
	ListenLocal ListeningMode = iota
	// ListenAll answers on every interface, permitting all origins.
	ListenAll
	// ListenSingle answers on one interface.
	ListenSingle
	// ListenBind binds to one interface only.
	ListenBind
)

var listeningModeNames = map[ListeningMode]string{
	ListenLocal:  "LOCAL",
	ListenAll:    "ALL",
	ListenSingle: "SINGLE",
	ListenBind:   "BIND",
}

func (m ListeningMode) String() string {
	if name, ok := listeningModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ListeningMode(%d)", int(m))
}

// ParseListeningMode converts a mode name (case-insensitive) to its value.
func ParseListeningMode(s string) (ListeningMode, error) {
	for mode, name := range listeningModeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}
	return ListenLocal, fmt.Errorf("invalid listening mode %q (expected LOCAL, ALL, SINGLE or BIND)", s)
}

// MarshalJSON encodes the mode by name.
func (m ListeningMode) MarshalJSON() ([]byte, error) {
	name, ok := listeningModeNames[m]
	if !ok {
		return nil, fmt.Errorf("invalid listening mode %d", int(m))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a mode name.
func (m *ListeningMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := ParseListeningMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// RevServerConfig configures conditional forwarding of reverse lookups.
type RevServerConfig struct {
	Active bool   `json:"active"`
	CIDR   string `json:"cidr"`   // e.g. 192.168.0.0/24
	Target string `json:"target"` // e.g. 192.168.0.1
	Domain string `json:"domain"` // optional local domain served by Target
}

// DHCPConfig defines the settings of the integrated DHCP server.
type DHCPConfig struct {
	Active      bool     `json:"active"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Router      string   `json:"router"`
	LeaseTime   string   `json:"lease_time"` // empty means resolver default
	IPv6        bool     `json:"ipv6"`
	RapidCommit bool     `json:"rapid_commit"`
	Hosts       []string `json:"hosts"` // dhcp-host values, kept in order
}

// DNSConfig defines the resolver settings rendered into dnsmasq.conf.
type DNSConfig struct {
	Port          uint16          `json:"port"`
	Upstreams     []string        `json:"upstreams"`
	CacheSize     uint            `json:"cache_size"`
	Logging       bool            `json:"logging"`
	BogusPriv     bool            `json:"bogus_priv"`
	DomainNeeded  bool            `json:"domain_needed"`
	ExpandHosts   bool            `json:"expand_hosts"`
	DNSSEC        bool            `json:"dnssec"`
	Domain        string          `json:"domain"`
	HostRecord    string          `json:"host_record"`
	ListeningMode ListeningMode   `json:"listening_mode"`
	Interface     string          `json:"interface"`
	RevServer     RevServerConfig `json:"rev_server"`
	DHCP          DHCPConfig      `json:"dhcp"`
	CNAMEs        []string        `json:"cnames"`
}

// DefaultDNSConfig returns the default DNS configuration.
func DefaultDNSConfig() *DNSConfig {
	return &DNSConfig{
		Port:          53,
		Upstreams:     []string{},
		CacheSize:     10000,
		Logging:       true,
		BogusPriv:     true,
		DomainNeeded:  false,
		ExpandHosts:   false,
		DNSSEC:        false,
		Domain:        "lan",
		ListeningMode: ListenLocal,
		DHCP: DHCPConfig{
			LeaseTime: "24h",
			Hosts:     []string{},
		},
		CNAMEs: []string{},
	}
}
