// Package rename реализует нормализацию имени одного узла: фильтрацию по
// стоп-словам, извлечение сохраняемых слов, определение региона, префикс,
// суффикс и устранение дубликатов.
package rename

import (
	"net"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"sub-renamer/internal/rules"
)

const (
	DefaultPrefix = "➥"
	DefaultSuffix = "ᵐᵗ"

	// MaxNameLength — предел длины итогового имени в рунах.
	MaxNameLength = 128
	ellipsis      = "…"
)

var fallbackStripRe = regexp.MustCompile(`[^\w\s\-\x{4e00}-\x{9fa5}]`)

// placeholders подставляются, когда после очистки от имени ничего не осталось.
var placeholders = map[rules.Language]string{
	rules.EN: "NODE",
	rules.CN: "未命名",
}

// Config — параметры оформления, неизменные в пределах одного прогона.
type Config struct {
	Language rules.Language
	Prefix   string
	Suffix   string
}

// DefaultConfig возвращает EN, "➥", "ᵐᵗ".
func DefaultConfig() Config {
	return Config{Language: rules.EN, Prefix: DefaultPrefix, Suffix: DefaultSuffix}
}

// Locator определяет код страны по IP-адресу сервера.
type Locator interface {
	CountryCode(ip net.IP) (string, bool)
}

// Normalizer нормализует имена в рамках одного прогона. Не безопасен для
// конкурентного использования: он владеет своим Register.
type Normalizer struct {
	cfg     Config
	table   *rules.Table
	reg     *Register
	locator Locator
}

// Option настраивает Normalizer.
type Option func(*Normalizer)

// WithTable задаёт таблицы правил вместо встроенных.
func WithTable(t *rules.Table) Option {
	return func(n *Normalizer) {
		if t != nil {
			n.table = t
		}
	}
}

// WithLocator включает определение региона по IP, когда ни одно правило
// не совпало с именем.
func WithLocator(l Locator) Option {
	return func(n *Normalizer) { n.locator = l }
}

// New создаёт нормализатор. Если reg == nil, создаётся новый реестр.
func New(cfg Config, reg *Register, opts ...Option) *Normalizer {
	if reg == nil {
		reg = NewRegister()
	}
	n := &Normalizer{cfg: cfg, table: rules.Default(), reg: reg}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize — сокращение для одного имени с новым нормализатором.
// ok=false означает, что узел отфильтрован.
func Normalize(raw string, cfg Config, reg *Register) (string, bool) {
	return New(cfg, reg).Normalize(raw)
}

// Normalize нормализует имя без адреса сервера.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	return n.Rename(raw, "")
}

// Rename реализует node.Renamer.
func (n *Normalizer) Rename(raw, host string) (string, bool) {
	original := Clean(raw)

	if n.table.Filtered(original) {
		return "", false
	}

	work, tags := n.table.ExtractPreserved(original)

	rule, matched := n.table.MatchRegion(work)
	if !matched {
		rule, matched = n.locate(host)
	}
	if matched {
		work = rule.Names.For(n.cfg.Language)
	} else {
		// Очищается исходное имя, а не остаток после извлечения сохраняемых слов.
		work = strings.TrimSpace(fallbackStripRe.ReplaceAllString(original, ""))
		if work == "" {
			work = placeholders[n.cfg.Language]
		}
	}

	title := n.reg.Resolve(n.cfg.Prefix+work) + n.cfg.Suffix
	if len(tags) > 0 {
		title += " " + strings.Join(tags, " ")
	}
	return truncate(title, MaxNameLength), true
}

func (n *Normalizer) locate(host string) (rules.RegionRule, bool) {
	if n.locator == nil || host == "" {
		return rules.RegionRule{}, false
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return rules.RegionRule{}, false
	}
	code, ok := n.locator.CountryCode(ip)
	if !ok {
		return rules.RegionRule{}, false
	}
	return n.table.RegionByCode(code)
}

// Clean убирает BOM, приводит строку к NFC, сворачивает полноширинные
// символы в ASCII и схлопывает пробелы.
func Clean(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "\uFEFF")
	if folded, _, err := transform.String(transform.Chain(norm.NFC, width.Fold), s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + ellipsis
}
