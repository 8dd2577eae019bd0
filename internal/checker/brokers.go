package checker

import (
	"net"
	"strconv"
	"strings"
)

// Broker endpoint defaults. kafka:29092 is the listener reachable from
// inside the compose network.
const (
	InternalBrokerHost = "kafka"
	InternalBrokerPort = 29092
)

var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
}

// InternalBrokerEndpoint is the canonical in-network broker address.
func InternalBrokerEndpoint() string {
	return net.JoinHostPort(InternalBrokerHost, strconv.Itoa(InternalBrokerPort))
}

// splitBroker normalises host[:port], defaulting both parts.
func splitBroker(entry string) (string, int) {
	host, portStr, found := strings.Cut(strings.TrimSpace(entry), ":")
	if host == "" {
		host = InternalBrokerHost
	}
	port := InternalBrokerPort
	if found && portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}
	return host, port
}

// PrioritizeBrokers orders broker endpoints so that addresses reachable
// from inside the container network come first. Entries are normalised to
// host:port and deduplicated. If the internal host appears at all, its
// canonical endpoint leads; non-loopback entries follow in input order, then
// the loopback ones. An empty input yields the internal endpoint alone.
func PrioritizeBrokers(raw []string) []string {
	var normalized []string
	seen := make(map[string]bool)
	hasInternal := false
	for _, b := range raw {
		if strings.TrimSpace(b) == "" {
			continue
		}
		host, port := splitBroker(b)
		entry := net.JoinHostPort(host, strconv.Itoa(port))
		if seen[entry] {
			continue
		}
		seen[entry] = true
		normalized = append(normalized, entry)
		if host == InternalBrokerHost {
			hasInternal = true
		}
	}

	var prioritized []string
	included := make(map[string]bool)
	add := func(entry string) {
		if !included[entry] {
			included[entry] = true
			prioritized = append(prioritized, entry)
		}
	}

	if hasInternal {
		add(InternalBrokerEndpoint())
	}
	for _, entry := range normalized {
		host, _ := splitBroker(entry)
		if !loopbackHosts[host] {
			add(entry)
		}
	}
	for _, entry := range normalized {
		add(entry)
	}

	if len(prioritized) == 0 {
		return []string{InternalBrokerEndpoint()}
	}
	return prioritized
}
