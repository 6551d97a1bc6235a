package config

// Paths holds the well-known filesystem locations used by the pipeline.
// Zero fields fall back to DefaultPaths when passed through WithDefaults.
type Paths struct {
	LiveConf     string `json:"live_conf"`
	StagedConf   string `json:"staged_conf"`
	LocalList    string `json:"local_list"`
	CustomList   string `json:"custom_list"`
	LeaseFile    string `json:"lease_file"`
	StaticLeases string `json:"static_leases"` // legacy dhcp-host fragment
	CNAMEs       string `json:"cnames"`        // legacy cname fragment
	DropInDir    string `json:"drop_in_dir"`
}

// DefaultPaths returns the stock locations.
func DefaultPaths() Paths {
	return Paths{
		LiveConf:     "/etc/pihole/dnsmasq.conf",
		StagedConf:   "/etc/pihole/dnsmasq.conf.temp",
		LocalList:    "/etc/pihole/local.list",
		CustomList:   "/etc/pihole/custom.list",
		LeaseFile:    "/etc/pihole/dhcp.leases",
		StaticLeases: "/etc/dnsmasq.d/04-pihole-static-dhcp.conf",
		CNAMEs:       "/etc/dnsmasq.d/05-pihole-custom-cname.conf",
		DropInDir:    "/etc/dnsmasq.d",
	}
}

// WithDefaults fills every empty field from DefaultPaths.
func (p Paths) WithDefaults() Paths {
	d := DefaultPaths()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&p.LiveConf, d.LiveConf)
	fill(&p.StagedConf, d.StagedConf)
	fill(&p.LocalList, d.LocalList)
	fill(&p.CustomList, d.CustomList)
	fill(&p.LeaseFile, d.LeaseFile)
	fill(&p.StaticLeases, d.StaticLeases)
	fill(&p.CNAMEs, d.CNAMEs)
	fill(&p.DropInDir, d.DropInDir)
	return p
}
