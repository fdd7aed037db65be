package utils

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"testing"
)

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantEnc *base64.Encoding
		wantErr bool
	}{
		{"std padded", "aGVsbG8=", "hello", base64.StdEncoding, false},
		{"raw std", "aGVsbG8", "hello", base64.RawStdEncoding, false},
		{"url safe", "Pz8-", "??>", base64.RawURLEncoding, false},
		{"with whitespace", " aGVs\nbG8= \t", "hello", base64.StdEncoding, false},
		{"invalid", "!!!!", "", nil, true},
		{"empty", "  ", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, err := DecodeBase64(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeBase64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if string(got) != tt.want {
				t.Errorf("DecodeBase64() = %q, want %q", got, tt.want)
			}
			if enc != tt.wantEnc {
				t.Errorf("DecodeBase64() encoding mismatch for %q", tt.input)
			}
		})
	}
}

func TestDecodeBase64Text(t *testing.T) {
	links := "vless://id@example.com:443#HK\n"
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"std padded", base64.StdEncoding.EncodeToString([]byte(links)), true},
		{"raw url", base64.RawURLEncoding.EncodeToString([]byte(links)), true},
		{"too short", "aGVsbG8=", false},
		{"plain text", "just some plain text here", false},
		{"binary", base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8, 0xf7, 0xf6, 0xf5, 0xf4}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, enc, ok := DecodeBase64Text(tt.input)
			if ok != tt.ok {
				t.Fatalf("DecodeBase64Text(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && enc.EncodeToString(data) != tt.input {
				t.Errorf("re-encoding changed the payload")
			}
		})
	}
}

func TestEscapeFragment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HK 01", "HK%2001"},
		{"a-b_c.d!e~f*g'h(i)", "a-b_c.d!e~f*g'h(i)"},
		{"➥🇭🇰HKᵐᵗ", "%E2%9E%A5%F0%9F%87%AD%F0%9F%87%B0HK%E1%B5%90%E1%B5%97"},
		{"a+b/c?d#e", "a%2Bb%2Fc%3Fd%23e"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := EscapeFragment(tt.in)
			if got != tt.want {
				t.Errorf("EscapeFragment(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if back := UnescapeFragment(got); back != tt.in {
				t.Errorf("UnescapeFragment(%q) = %q, want %q", got, back, tt.in)
			}
		})
	}
}

func TestUnescapeFragment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"%E9%A6%99%E6%B8%AF", "香港"},
		{"a+b", "a+b"},
		{"100%", "100%"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := UnescapeFragment(tt.in); got != tt.want {
				t.Errorf("UnescapeFragment(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitFragment(t *testing.T) {
	body, frag, has := SplitFragment("trojan://p@h:443?x=1#A#B")
	if !has || body != "trojan://p@h:443?x=1" || frag != "A#B" {
		t.Errorf("SplitFragment() = %q, %q, %v", body, frag, has)
	}
	if _, _, has := SplitFragment("trojan://p@h:443"); has {
		t.Error("SplitFragment() has = true, want false")
	}
}

func TestDecodeUserInfo(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"std padded", "dGVzdA==", "test", false},
		{"url safe", "dGVzdA", "test", false},
		{"url safe padded", "dGVzdA==", "test", false},
		{"raw std", "dGVzdA", "test", false},
		{"invalid", "!!!", "", true},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeUserInfo(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeUserInfo() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if string(got) != tt.want {
				t.Errorf("DecodeUserInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsValidHost(t *testing.T) {
	tests := []struct {
		host  string
		valid bool
	}{
		{"example.com", true},
		{"xn--80akhbyknj4f.com", true},
		{"8.8.8.8", true},
		{"localhost", false},  // Domain
		{"127.0.0.1", true},   // IP
		{"192.168.1.1", true}, // IP
		{"exa..mple.com", false},
		{"2001:db8::1", true},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := IsValidHost(tt.host); got != tt.valid {
				t.Errorf("IsValidHost() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestIsValidPort(t *testing.T) {
	tests := []struct {
		port  int
		valid bool
	}{
		{80, true},
		{65535, true},
		{0, false},
		{65536, false},
		{-1, false},
		{1, true},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.port), func(t *testing.T) {
			if got := IsValidPort(tt.port); got != tt.valid {
				t.Errorf("IsValidPort() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseHostPort(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPort int
		parseErr bool
		wantErr  bool
	}{
		{"valid", "https://example.com:443", "example.com", 443, false, false},
		{"no port", "https://example.com", "", 0, false, true},
		{"port zero", "https://example.com:0", "", 0, false, true},
		{"port out of range", "https://example.com:70000", "", 0, false, true},
		{"invalid host", "https://exa..mple.com:443", "", 0, false, true},
		{"IP host", "https://8.8.8.8:53", "8.8.8.8", 53, false, false},
		{"invalid URL", "://", "", 0, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				if !tt.parseErr {
					t.Errorf("url.Parse() failed unexpectedly: %v", err)
				}
				return
			}
			host, port, err := ParseHostPort(u)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseHostPort() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("ParseHostPort() = (%q, %d), want (%q, %d)", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestIsPathSafe(t *testing.T) {
	baseDir := "/tmp/safe"
	tests := []struct {
		name string
		path string
		safe bool
	}{
		{"safe", "/tmp/safe/file.txt", true},
		{"subdir", "/tmp/safe/sub/file.txt", true},
		{"traversal", "/tmp/safe/../etc/passwd", false},
		{"absolute traversal", "/etc/passwd", false},
		{"relative traversal", "../secret", false},
		{"current dir", "/tmp/safe/.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPathSafe(tt.path, baseDir); got != tt.safe {
				t.Errorf("IsPathSafe() = %v, want %v", got, tt.safe)
			}
		})
	}
}

func TestServerHost(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"vless://id@1.2.3.4:443", "1.2.3.4"},
		{"vless://id@[2001:db8::1]:443", "2001:db8::1"},
		{"vless://id@example.com", ""},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.url)
		if err != nil {
			t.Fatal(err)
		}
		if got := ServerHost(u); got != tt.want {
			t.Errorf("ServerHost(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
