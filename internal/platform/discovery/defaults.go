// Package discovery centralizes service address conventions.
package discovery

import (
	"strconv"
	"strings"
)

// ServiceRegistry is the mutation registry gRPC service identity.
const ServiceRegistry = "registry"

var grpcPorts = map[string]int{
	ServiceRegistry: 8095,
}

// DefaultGRPCPort returns the conventional gRPC port for a service, or 0.
func DefaultGRPCPort(service string) int {
	return grpcPorts[strings.TrimSpace(service)]
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	service = strings.TrimSpace(service)
	return addrFor(service, DefaultGRPCPort(service))
}

// LocalGRPCAddr returns the service's conventional port on localhost.
func LocalGRPCAddr(service string) string {
	return addrFor("localhost", DefaultGRPCPort(service))
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

func addrFor(host string, port int) string {
	if port <= 0 {
		return ""
	}
	return host + ":" + strconv.Itoa(port)
}
