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

package ipvalidator_test

import (
	"testing"

	"github.com/veloxvoip/callbridge/pkg/ipvalidator"
)

func TestNewIPValidator(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		wantErr bool
	}{
		{
			name:    "valid CIDR ranges",
			allowed: []string{"192.76.120.0/24", "10.0.0.0/8"},
		},
		{
			name:    "valid single IPs",
			allowed: []string{"192.76.120.10", "10.0.0.1"},
		},
		{
			name:    "mixed CIDR and single IPs",
			allowed: []string{"192.76.120.0/24", "10.0.0.1", "2001:db8::/32"},
		},
		{
			name:    "empty list",
			allowed: []string{},
		},
		{
			name:    "whitespace and blank entries skipped",
			allowed: []string{"  192.76.120.0/24  ", "  ", "10.0.0.1"},
		},
		{
			name:    "invalid IP address",
			allowed: []string{"999.999.999.999"},
			wantErr: true,
		},
		{
			name:    "invalid CIDR notation",
			allowed: []string{"192.76.120.0/99"},
			wantErr: true,
		},
		{
			name:    "IPv6 single address",
			allowed: []string{"::1", "2001:db8::1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ipvalidator.NewIPValidator(tt.allowed)
			if tt.wantErr {
				if err == nil {
					t.Error("NewIPValidator() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("NewIPValidator() unexpected error: %v", err)
				return
			}
			if v == nil {
				t.Error("NewIPValidator() returned nil validator")
			}
		})
	}
}

func TestIPValidator_IsAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		addr    string
		want    bool
	}{
		{
			name:    "IP in CIDR range",
			allowed: []string{"192.76.120.0/24"},
			addr:    "192.76.120.50",
			want:    true,
		},
		{
			name:    "IP outside CIDR range",
			allowed: []string{"192.76.120.0/24"},
			addr:    "192.76.121.1",
			want:    false,
		},
		{
			name:    "exact IP match",
			allowed: []string{"192.76.120.10"},
			addr:    "192.76.120.10",
			want:    true,
		},
		{
			name:    "single IP no match",
			allowed: []string{"192.76.120.10"},
			addr:    "192.76.120.11",
			want:    false,
		},
		{
			name:    "webhook RemoteAddr with port",
			allowed: []string{"192.76.120.0/24"},
			addr:    "192.76.120.50:49152",
			want:    true,
		},
		{
			name:    "with port not in range",
			allowed: []string{"192.76.120.0/24"},
			addr:    "8.8.8.8:49152",
			want:    false,
		},
		{
			name:    "empty allowed list denies everything",
			allowed: []string{},
			addr:    "192.76.120.1",
			want:    false,
		},
		{
			name:    "invalid address format",
			allowed: []string{"192.76.120.0/24"},
			addr:    "not-an-ip",
			want:    false,
		},
		{
			name:    "empty address",
			allowed: []string{"192.76.120.0/24"},
			addr:    "",
			want:    false,
		},
		{
			name:    "IPv6 in range",
			allowed: []string{"2001:db8::/32"},
			addr:    "2001:db8::1",
			want:    true,
		},
		{
			name:    "IPv6 with port",
			allowed: []string{"2001:db8::/32"},
			addr:    "[2001:db8::1]:49152",
			want:    true,
		},
		{
			name:    "IPv6 out of range",
			allowed: []string{"2001:db8::/32"},
			addr:    "2001:db9::1",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ipvalidator.NewIPValidator(tt.allowed)
			if err != nil {
				t.Fatalf("NewIPValidator() error: %v", err)
			}
			if got := v.IsAllowed(tt.addr); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func BenchmarkIPValidator_IsAllowed(b *testing.B) {
	v, err := ipvalidator.NewIPValidator([]string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.76.120.0/24",
		"127.0.0.1",
	})
	if err != nil {
		b.Fatalf("NewIPValidator() error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.IsAllowed("192.76.120.50:49152")
	}
}
