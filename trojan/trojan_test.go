package trojan

import (
	"errors"
	"testing"

	"sub-renamer/internal/node"
)

func TestTrojanLink(t *testing.T) {
	var hosts []string
	r := node.RenamerFunc(func(name, host string) (string, bool) {
		hosts = append(hosts, host)
		if name == "剩余流量" {
			return "", false
		}
		return "➥" + name, true
	})
	link := NewTrojanLink()

	tests := []struct {
		name     string
		input    string
		want     string
		wantHost string
		wantErr  error
	}{
		{
			"keeps query bytes",
			"trojan://pass@example.com:443?sni=a.com&type=grpc&serviceName=x#Server%201",
			"trojan://pass@example.com:443?sni=a.com&type=grpc&serviceName=x#%E2%9E%A5Server%201",
			"example.com",
			nil,
		},
		{
			"ipv6 host",
			"trojan://pass@[2001:db8::1]:443#v6",
			"trojan://pass@[2001:db8::1]:443#%E2%9E%A5v6",
			"2001:db8::1",
			nil,
		},
		{
			"invalid host gives empty host",
			"trojan://pass@exa..mple.com:443#a",
			"trojan://pass@exa..mple.com:443#%E2%9E%A5a",
			"",
			nil,
		},
		{
			"filtered",
			"trojan://pass@example.com:443#%E5%89%A9%E4%BD%99%E6%B5%81%E9%87%8F",
			"",
			"example.com",
			node.ErrFiltered,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hosts = nil
			got, err := link.Process(tt.input, r)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Process() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Process() = %q, want %q", got, tt.want)
			}
			if len(hosts) != 1 || hosts[0] != tt.wantHost {
				t.Errorf("host = %v, want %q", hosts, tt.wantHost)
			}
		})
	}
}

func TestTrojanLink_Invalid(t *testing.T) {
	r := node.RenamerFunc(func(name, _ string) (string, bool) { return name, true })
	for _, s := range []string{"trojan://", "trojan://@example.com:443", "trojan://pa ss@h:1"} {
		if _, err := NewTrojanLink().Process(s, r); err == nil {
			t.Errorf("Process(%q) error = nil, want error", s)
		}
	}
}

func TestTrojanLink_Matches(t *testing.T) {
	if !NewTrojanLink().Matches("Trojan://x") {
		t.Error("Matches() = false, want true")
	}
}
