package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"sub-renamer/internal/rename"
	"sub-renamer/internal/rules"
	"sub-renamer/internal/subscription"
)

const version = "2.0"

type Server struct {
	cfg  *AppConfig
	proc *subscription.Processor
	log  logrus.FieldLogger

	// Rate limiting with TTL
	limiters     map[string]*rate.Limiter
	lastSeen     map[string]time.Time
	limiterMutex sync.Mutex

	// Одинаковые параллельные запросы обрабатываются один раз
	group singleflight.Group
}

func NewServer(cfg *AppConfig, proc *subscription.Processor, log logrus.FieldLogger) *Server {
	return &Server{
		cfg:      cfg,
		proc:     proc,
		log:      log,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

// Handler возвращает маршруты сервера со сжатием ответов.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUsage)
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/name", s.handleName)
	return gzhttp.GzipHandler(s.withCommon(mux))
}

// withCommon добавляет CORS, отвечает на preflight и ограничивает
// частоту запросов с одного IP.
func (s *Server) withCommon(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if !s.getLimiter(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) getLimiter(ip string) *rate.Limiter {
	s.limiterMutex.Lock()
	defer s.limiterMutex.Unlock()
	s.lastSeen[ip] = time.Now()
	if limiter, exists := s.limiters[ip]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(s.cfg.RateInterval), s.cfg.RateBurst)
	s.limiters[ip] = limiter
	return limiter
}

// cleanupLimiters удаляет лимитеры клиентов, не появлявшихся дольше
// LimiterTTL. Останавливается вместе с ctx.
func (s *Server) cleanupLimiters(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.evictLimiters(now)
		}
	}
}

func (s *Server) evictLimiters(now time.Time) {
	s.limiterMutex.Lock()
	defer s.limiterMutex.Unlock()
	for ip, last := range s.lastSeen {
		if now.Sub(last) > s.cfg.LimiterTTL {
			delete(s.limiters, ip)
			delete(s.lastSeen, ip)
		}
	}
}

type usageDoc struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Description      string            `json:"description"`
	Endpoints        map[string]string `json:"endpoints"`
	Parameters       map[string]string `json:"parameters"`
	SupportedFormats []string          `json:"supported_formats"`
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, usageDoc{
		Name:        "sub-renamer",
		Version:     version,
		Description: "Normalizes proxy node names in subscriptions: region flag, code, prefix and suffix",
		Endpoints: map[string]string{
			"POST /convert": "body is a subscription, response is the rewritten subscription",
			"GET /name":     "normalizes a single name given in ?name=",
		},
		Parameters: map[string]string{
			"lang":   "EN (default) | CN",
			"prefix": fmt.Sprintf("name prefix, default: %s", s.cfg.Prefix),
			"suffix": fmt.Sprintf("name suffix, default: %s", s.cfg.Suffix),
		},
		SupportedFormats: []string{
			"Sing-box (JSON)",
			"Clash/Clash Meta (YAML)",
			"Base64",
			"URI list (vmess, vless, trojan, ss, hysteria2)",
			"Plain text",
		},
	})
}

// renameConfig берёт lang/prefix/suffix из запроса; пустые значения
// заменяются настройками сервера.
func (s *Server) renameConfig(r *http.Request) rename.Config {
	cfg := s.cfg.RenameConfig()
	q := r.URL.Query()
	if v := q.Get("lang"); v != "" {
		cfg.Language = rules.ParseLanguage(v)
	}
	if v := q.Get("prefix"); v != "" {
		cfg.Prefix = v
	}
	if v := q.Get("suffix"); v != "" {
		cfg.Suffix = v
	}
	return cfg
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "subscription too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty subscription")
		return
	}

	cfg := s.renameConfig(r)
	contentType := r.Header.Get("Content-Type")
	key := requestKey(body, contentType, cfg)
	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		return s.proc.Process(subscription.Request{
			Text:        string(body),
			ContentType: contentType,
			Config:      cfg,
		}), nil
	})
	res := v.(subscription.Result)

	if contentType == "" || !res.PreserveContentType {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Subscription-Format", res.Kind.String())
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, res.Text)
}

// requestKey — ключ singleflight: хэш тела и всех параметров, влияющих
// на результат.
func requestKey(body []byte, contentType string, cfg rename.Config) string {
	h := sha256.New()
	h.Write(body)
	fmt.Fprintf(h, "\x00%s\x00%s\x00%s\x00%s", contentType, cfg.Language, cfg.Prefix, cfg.Suffix)
	return hex.EncodeToString(h.Sum(nil))
}

type nameResponse struct {
	Name     string `json:"name"`
	Filtered bool   `json:"filtered"`
}

func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	if _, ok := q["name"]; !ok {
		writeError(w, http.StatusBadRequest, "missing name parameter")
		return
	}
	name, ok := s.proc.Normalizer(s.renameConfig(r)).Normalize(q.Get("name"))
	writeJSON(w, http.StatusOK, nameResponse{Name: name, Filtered: !ok})
}

type errorResponse struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     true,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Run запускает сервер и останавливает его при отмене ctx.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.cleanupLimiters(cleanupCtx, 2*time.Minute)

	s.log.WithFields(logrus.Fields{
		"listen":   listener.Addr().String(),
		"max_body": s.cfg.MaxBodyBytes,
	}).Info("server starting")

	errChan := make(chan error, 1)
	go func() { errChan <- server.Serve(listener) }()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("shutting down gracefully")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("force shutdown: %w", err)
		}
	}
	s.log.Info("server stopped")
	return nil
}
