package netenv

import (
	"net"
	"strings"
)

// CGNAT range (100.64.0.0/10). Cloudflare WARP, Tailscale and carrier grade
// NATs hand out addresses from it.
var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var tunnelPrefixes = []string{"tun", "tap", "wg", "ppp", "warp", "utun"}

// BehindRestrictiveNAT reports whether any active interface looks like a VPN
// tunnel or carries a CGNAT address, in which case host and srflx candidates
// rarely connect and TURN should be forced.
func BehindRestrictiveNAT() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if IsTunnelInterface(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if IsCGNAT(addrIP(addr)) {
				return true
			}
		}
	}
	return false
}

// IsTunnelInterface matches interface names used by common VPN drivers.
func IsTunnelInterface(name string) bool {
	name = strings.ToLower(name)
	for _, p := range tunnelPrefixes {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// IsCGNAT reports whether ip lies inside 100.64.0.0/10.
func IsCGNAT(ip net.IP) bool {
	return ip != nil && cgnatBlock.Contains(ip)
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
