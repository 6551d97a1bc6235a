package dnsmasq

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

const lineMarker = " at line "

// LineNumber extracts the 1-based line number from a dnsmasq diagnostic such
// as "bad option at line 42 of /etc/pihole/dnsmasq.conf.temp". Only the
// marker and the integer are required; the " of <file>" tail is optional.
func LineNumber(diag string) (int, bool) {
	idx := strings.Index(diag, lineMarker)
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimLeft(diag[idx+len(lineMarker):], " \t")

	end := 0
	if end < len(rest) && (rest[end] == '-' || rest[end] == '+') {
		end++
	}
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Line returns line n (1-indexed) of the file at path without its trailing
// newline. It reports false when the file cannot be read or is too short.
func Line(path string, n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for count := 1; ; count++ {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return "", false
		}
		if count == n {
			line = strings.TrimSuffix(line, "\n")
			return strings.TrimSuffix(line, "\r"), true
		}
		if err != nil {
			return "", false
		}
	}
}
