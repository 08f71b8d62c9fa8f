// Copyright 2025 VeloxVoIP
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ipvalidator restricts webhook ingress to a configured set of source
// addresses, on top of (not instead of) signature verification.
package ipvalidator

import (
	"fmt"
	"net"
	"strings"
)

// IPValidator validates source IPs against allowed IPs and CIDR ranges.
type IPValidator struct {
	networks []*net.IPNet
}

// NewIPValidator accepts a mix of CIDR ranges and single IPs (v4 or v6).
// Blank entries are skipped so sparse yaml lists work.
func NewIPValidator(allowed []string) (*IPValidator, error) {
	v := &IPValidator{networks: make([]*net.IPNet, 0, len(allowed))}
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid IP address: %s", entry)
			}
			if ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid IP/CIDR '%s': %w", entry, err)
		}
		v.networks = append(v.networks, ipNet)
	}
	return v, nil
}

// IsAllowed checks the given address, tolerating the "ip:port" form of
// http.Request.RemoteAddr.
func (v *IPValidator) IsAllowed(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(strings.TrimSpace(host))
	if ip == nil {
		return false
	}
	for _, network := range v.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
