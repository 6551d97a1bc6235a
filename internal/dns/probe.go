package dns

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// ProbeResult is the outcome of querying one upstream server.
type ProbeResult struct {
	Upstream string        `json:"upstream"`
	Address  string        `json:"address"`
	RTT      time.Duration `json:"rtt"`
	Rcode    string        `json:"rcode,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// OK reports whether the upstream answered with NOERROR.
func (r ProbeResult) OK() bool {
	return r.Err == "" && r.Rcode == dns.RcodeToString[dns.RcodeSuccess]
}

// UpstreamAddress turns a dnsmasq server= value into host:port. dnsmasq
// writes the port after a '#', e.g. "127.0.0.1#5335" or "::1#53".
func UpstreamAddress(upstream string) string {
	host, port := upstream, "53"
	if i := strings.LastIndex(upstream, "#"); i >= 0 {
		host, port = upstream[:i], upstream[i+1:]
	}
	// Strip an optional @interface or @source suffix.
	if i := strings.Index(host, "@"); i >= 0 {
		host = host[:i]
	}
	host = strings.Trim(host, "[]")
	return net.JoinHostPort(host, port)
}

// Probe sends an NS query for the root zone to upstream.
func Probe(ctx context.Context, upstream string, timeout time.Duration) ProbeResult {
	res := ProbeResult{Upstream: upstream, Address: UpstreamAddress(upstream)}

	msg := new(dns.Msg)
	msg.SetQuestion(".", dns.TypeNS)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: timeout}
	resp, rtt, err := client.ExchangeContext(ctx, msg, res.Address)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.RTT = rtt
	res.Rcode = dns.RcodeToString[resp.Rcode]
	return res
}

// ProbeAll probes every upstream in order.
func ProbeAll(ctx context.Context, upstreams []string, timeout time.Duration) []ProbeResult {
	results := make([]ProbeResult, 0, len(upstreams))
	for _, upstream := range upstreams {
		results = append(results, Probe(ctx, upstream, timeout))
	}
	return results
}
