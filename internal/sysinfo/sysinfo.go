package sysinfo

import (
	"time"

	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/net"
)

// Interface is a network interface as seen by the host.
type Interface struct {
	Name  string   `json:"name"`
	MAC   string   `json:"mac"`
	Flags []string `json:"flags"`
	Addrs []string `json:"addrs"`
}

// Interfaces lists the host's network interfaces.
func Interfaces() ([]Interface, error) {
	stats, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(stats))
	for _, s := range stats {
		iface := Interface{Name: s.Name, MAC: s.HardwareAddr, Flags: s.Flags}
		for _, a := range s.Addrs {
			iface.Addrs = append(iface.Addrs, a.Addr)
		}
		out = append(out, iface)
	}
	return out, nil
}

// InterfaceExists reports whether name is one of the host's interfaces.
func InterfaceExists(name string) (bool, error) {
	ifaces, err := Interfaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Host summarizes the machine the resolver runs on.
type Host struct {
	Hostname string        `json:"hostname"`
	Platform string        `json:"platform"`
	Kernel   string        `json:"kernel"`
	Uptime   time.Duration `json:"uptime"`
}

// HostInfo returns basic facts about the host.
func HostInfo() (Host, error) {
	info, err := host.Info()
	if err != nil {
		return Host{}, err
	}
	return Host{
		Hostname: info.Hostname,
		Platform: info.Platform + " " + info.PlatformVersion,
		Kernel:   info.KernelVersion,
		Uptime:   time.Duration(info.Uptime) * time.Second,
	}, nil
}
