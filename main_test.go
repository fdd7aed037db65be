package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"

	"sub-renamer/internal/rename"
	"sub-renamer/internal/rules"
	"sub-renamer/internal/subscription"
	"sub-renamer/internal/utils"
)

func newTestServer(t *testing.T, tweak func(*AppConfig)) *Server {
	t.Helper()
	cfg := &AppConfig{Prefix: rename.DefaultPrefix, Suffix: rename.DefaultSuffix, RateBurst: 100}
	if tweak != nil {
		tweak(cfg)
	}
	cfg.Init()
	logger, _ := test.NewNullLogger()
	proc := subscription.NewProcessor(subscription.WithLogger(logger))
	return NewServer(cfg, proc, logger)
}

func do(s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestConvertURIList(t *testing.T) {
	s := newTestServer(t, nil)
	body := "trojan://pw@example.com:443#%E7%BE%8E%E5%9B%BD%2001\n" +
		"trojan://pw@example.com:443#%E8%BF%87%E6%9C%9F%E6%97%B6%E9%97%B4\n"

	rec := do(s, http.MethodPost, "/convert?lang=CN", "text/plain", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want echoed text/plain", ct)
	}
	if got := rec.Header().Get("X-Subscription-Format"); got != "urilist" {
		t.Errorf("X-Subscription-Format = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}
	want := "trojan://pw@example.com:443#" + utils.EscapeFragment("➥🇺🇸美国ᵐᵗ")
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("body = %q, want line %q", rec.Body, want)
	}
	if strings.Count(rec.Body.String(), "trojan://") != 1 {
		t.Errorf("filtered line kept: %q", rec.Body)
	}
}

func TestConvertJSONKeepsContentType(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"outbounds":[{"type":"vmess","tag":"HK 01","server":"1.1.1.1"}]}`

	rec := do(s, http.MethodPost, "/convert", "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"tag": "➥🇭🇰HKᵐᵗ"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestConvertDefaultContentType(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, http.MethodPost, "/convert", "", "just some text")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "just some text" {
		t.Errorf("body = %q, want unchanged", rec.Body)
	}
}

func TestConvertErrors(t *testing.T) {
	s := newTestServer(t, func(c *AppConfig) { c.MaxBodyBytes = 8 })
	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"empty body", http.MethodPost, "", http.StatusBadRequest},
		{"too large", http.MethodPost, "vless://0123456789", http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, tt.method, "/convert", "", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if !resp.Error || resp.Message == "" {
				t.Errorf("error response = %+v", resp)
			}
			if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
				t.Errorf("timestamp %q: %v", resp.Timestamp, err)
			}
		})
	}
}

func TestName(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		target string
		want   nameResponse
	}{
		{"/name?name=HK", nameResponse{Name: "➥🇭🇰HKᵐᵗ"}},
		{"/name?name=HK&prefix=%5Bx%5D&suffix=-A", nameResponse{Name: "[x]🇭🇰HK-A"}},
		{"/name?name=HK&lang=CN", nameResponse{Name: "➥🇭🇰香港ᵐᵗ"}},
		{"/name?name=%E8%BF%87%E6%9C%9F%E6%97%B6%E9%97%B4", nameResponse{Filtered: true}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(s, http.MethodGet, tt.target, "", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got nameResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if rec := do(s, http.MethodGet, "/name", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d", rec.Code)
	}
}

func TestUsageAndRouting(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc usageDoc
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "sub-renamer" || len(doc.SupportedFormats) == 0 {
		t.Errorf("usage = %+v", doc)
	}

	if rec := do(s, http.MethodGet, "/missing", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path: status = %d", rec.Code)
	}

	rec = do(s, http.MethodOptions, "/convert", "", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("preflight methods = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *AppConfig) {
		c.RateInterval = time.Hour
		c.RateBurst = 1
	})
	if rec := do(s, http.MethodGet, "/", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/", "", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestEvictLimiters(t *testing.T) {
	s := newTestServer(t, func(c *AppConfig) { c.LimiterTTL = time.Minute })
	s.getLimiter("192.0.2.1")
	s.getLimiter("192.0.2.2")
	s.lastSeen["192.0.2.1"] = time.Now().Add(-2 * time.Minute)

	s.evictLimiters(time.Now())
	if _, ok := s.limiters["192.0.2.1"]; ok {
		t.Error("stale limiter kept")
	}
	if _, ok := s.limiters["192.0.2.2"]; !ok {
		t.Error("fresh limiter evicted")
	}
}

func TestRequestKey(t *testing.T) {
	cfg := rename.DefaultConfig()
	a := requestKey([]byte("x"), "", cfg)
	if a != requestKey([]byte("x"), "", cfg) {
		t.Error("key not deterministic")
	}
	other := cfg
	other.Prefix = "!"
	if a == requestKey([]byte("x"), "", other) {
		t.Error("prefix does not change key")
	}
	if a == requestKey([]byte("x"), "application/json", cfg) {
		t.Error("content type does not change key")
	}
}

func TestServeShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Listen != defaultListen || cfg.MaxBodyBytes != defaultMaxBodyBytes {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.Prefix != rename.DefaultPrefix || cfg.Suffix != rename.DefaultSuffix {
			t.Errorf("prefix/suffix = %q/%q", cfg.Prefix, cfg.Suffix)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q", cfg.LogLevel)
		}
	})

	t.Run("file and env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "listen: \":9000\"\nlang: CN\nprefix: \"\"\nrate_interval: 2s\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("SUBRENAMER_LISTEN", ":9100")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Listen != ":9100" {
			t.Errorf("Listen = %q, want env override", cfg.Listen)
		}
		if cfg.RenameConfig().Language != rules.CN {
			t.Errorf("Lang = %q", cfg.Lang)
		}
		if cfg.Prefix != "" {
			t.Errorf("Prefix = %q, want explicit empty", cfg.Prefix)
		}
		if cfg.RateInterval != 2*time.Second {
			t.Errorf("RateInterval = %v", cfg.RateInterval)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q", cfg.LogLevel)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	if err := writeResult(dir, "/some/where/sub.txt", "data"); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "sub.txt"))
	if err != nil || string(got) != "data" {
		t.Errorf("written = %q, %v", got, err)
	}
	if err := writeResult(dir, "-", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stdin.txt")); err != nil {
		t.Errorf("stdin result: %v", err)
	}
}

func TestContentTypeByExt(t *testing.T) {
	tests := map[string]string{
		"a.json":    "application/json",
		"b.YAML":    "application/yaml",
		"c.yml":     "application/yaml",
		"d.txt":     "",
		"-":         "",
		"noext/sub": "",
	}
	for in, want := range tests {
		if got := contentTypeByExt(in); got != want {
			t.Errorf("contentTypeByExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommands(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	dir := t.TempDir()
	src := filepath.Join(dir, "sub.txt")
	if err := os.WriteFile(src, []byte("trojan://pw@example.com:443#US-1\ntrojan://pw@example.com:443#US-2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		mainCommand.SetOut(&out)
		mainCommand.SetArgs(args)
		if err := mainCommand.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out.String()
	}

	got := run("name", "US-1", "US-2", "过期时间")
	want := "➥🇺🇸USᵐᵗ\n➥🇺🇸US-2ᵐᵗ\n# filtered: 过期时间\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("name mismatch (-want +got):\n%s", diff)
	}

	got = run("convert", src)
	if !strings.Contains(got, "#"+utils.EscapeFragment("➥🇺🇸US-2ᵐᵗ")) {
		t.Errorf("convert output = %q", got)
	}

	if out := run("regions"); !strings.Contains(out, "HK") {
		t.Errorf("regions output = %q", out)
	}
	exported := filepath.Join(dir, "rules.yaml")
	run("regions", "--export", exported)
	set, err := rules.LoadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Regions) != len(rules.DefaultSet().Regions) {
		t.Errorf("exported %d regions", len(set.Regions))
	}
}
