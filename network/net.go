// Package network holds small address-formatting helpers shared between the
// receiver and the CLI/bootstrap layers.
package network

import (
	"fmt"
	"net"
	"strings"
)

// DefaultListenPort is the scoreboard's default TCP listen port.
const DefaultListenPort = 21967

// PrettyAddr formats an IPv4/IPv6 host and port for display. IPv4 hosts
// become "host:port". IPv6 hosts are bracketed, "[host]:port", and the
// port is left off ("[host]") when it equals DefaultListenPort.
func PrettyAddr(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		if port != DefaultListenPort {
			return fmt.Sprintf("[%s]:%d", host, port)
		}
		return fmt.Sprintf("[%s]", host)
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// LocalAddresses does a best-effort enumeration of the host's non-loopback
// IPv4 and IPv6 addresses, for display to an operator locating the
// scoreboard on the network. IPv6 addresses are enumerated for display
// only; the listener itself never binds to them (spec §1 Non-goals).
func LocalAddresses() []string {
	ifaces, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var v4, v6 []string
	for _, a := range ifaces {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			v4 = append(v4, ip4.String())
			continue
		}
		v6 = append(v6, ipNet.IP.String())
	}
	return append(v4, v6...)
}
