// Package utils содержит общие вспомогательные функции для обработки
// прокси-подписок: base64, фрагменты ссылок, хосты и пути.
//
//nolint:revive
package utils

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// === Регулярные выражения ===
var (
	// hostRegex валидирует доменные имена (включая Punycode xn--)
	hostRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z0-9]([a-z0-9-]*[a-z0-9])?$|^xn--([a-z0-9-]+\.)+[a-z0-9-]+$`)
)

// MinBase64Payload — минимальная длина текста, который имеет смысл
// проверять как base64-подписку.
const MinBase64Payload = 16

// Base64Encoding определяет алфавит и наличие padding по самой строке.
func Base64Encoding(s string) *base64.Encoding {
	isURLSafe := strings.ContainsAny(s, "-_")
	isPadded := strings.HasSuffix(s, "=")
	switch {
	case isURLSafe && isPadded:
		return base64.URLEncoding
	case isURLSafe:
		return base64.RawURLEncoding
	case isPadded:
		return base64.StdEncoding
	default:
		return base64.RawStdEncoding
	}
}

// DecodeUserInfo безопасно декодирует base64-закодированный userinfo,
// определяя тип кодировки по наличию символов и padding.
func DecodeUserInfo(s string) ([]byte, error) {
	return Base64Encoding(s).DecodeString(s)
}

// DecodeBase64 декодирует base64 без учёта пробельных символов и неполного
// padding. Возвращает кодировку, которой результат нужно кодировать обратно,
// чтобы сохранить исходный алфавит и наличие padding.
func DecodeBase64(s string) ([]byte, *base64.Encoding, error) {
	compact := stripSpace(s)
	if compact == "" {
		return nil, nil, fmt.Errorf("empty base64 payload")
	}
	enc := Base64Encoding(compact)
	raw := base64.RawStdEncoding
	if strings.ContainsAny(compact, "-_") {
		raw = base64.RawURLEncoding
	}
	data, err := raw.DecodeString(strings.TrimRight(compact, "="))
	if err != nil {
		return nil, nil, err
	}
	return data, enc, nil
}

// DecodeBase64Text проверяет, что s целиком является base64 от UTF-8 текста:
// длина не меньше MinBase64Payload, обратное кодирование совпадает
// с входом (без пробелов), результат — валидный UTF-8.
func DecodeBase64Text(s string) ([]byte, *base64.Encoding, bool) {
	compact := stripSpace(s)
	if len(compact) < MinBase64Payload {
		return nil, nil, false
	}
	data, enc, err := DecodeBase64(compact)
	if err != nil || len(data) == 0 {
		return nil, nil, false
	}
	if enc.EncodeToString(data) != compact {
		return nil, nil, false
	}
	if !utf8.Valid(data) {
		return nil, nil, false
	}
	return data, enc, true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' || r == ' ' {
			return -1
		}
		return r
	}, s)
}

// SplitFragment делит ссылку по первому '#'. has=false, если фрагмента нет.
func SplitFragment(link string) (body, fragment string, has bool) {
	return strings.Cut(link, "#")
}

// UnescapeFragment раскодирует percent-encoding фрагмента. Если
// последовательность битая, возвращается исходный текст.
func UnescapeFragment(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// EscapeFragment кодирует имя так же, как encodeURIComponent в браузерах:
// без изменений остаются только буквы, цифры и -_.!~*'().
func EscapeFragment(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// IsValidHost проверяет, что хост — это либо валидный домен,
// либо IP-адрес.
func IsValidHost(host string) bool {
	if host == "" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return true
	}
	return hostRegex.MatchString(strings.ToLower(host))
}

// IsValidPort проверяет, что порт находится в диапазоне 1–65535.
func IsValidPort(port int) bool {
	return port > 0 && port <= 65535
}

// ParseHostPort извлекает и валидирует хост и порт из *url.URL.
func ParseHostPort(u *url.URL) (string, int, error) {
	host := u.Hostname()
	portStr := u.Port()
	if portStr == "" {
		return "", 0, fmt.Errorf("missing port")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port")
	}
	if !IsValidPort(port) {
		return "", 0, fmt.Errorf("port out of range")
	}
	if !IsValidHost(host) {
		return "", 0, fmt.Errorf("invalid host")
	}
	return host, port, nil
}

// ServerHost возвращает хост сервера, если он валиден, иначе пустую строку.
// Используется только для определения страны по IP.
func ServerHost(u *url.URL) string {
	host, _, err := ParseHostPort(u)
	if err != nil {
		return ""
	}
	return host
}

// IsPathSafe проверяет, что путь не выходит за пределы baseDir.
func IsPathSafe(p, baseDir string) bool {
	resolvedBase, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		// Если не удалось разрешить симлинки (директория может не существовать),
		// используем абсолютный путь в качестве fallback.
		resolvedBase, err = filepath.Abs(baseDir)
		if err != nil {
			return false
		}
	}
	resolvedBase = filepath.Clean(resolvedBase)

	dir := filepath.Dir(p)
	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolvedDir, err = filepath.Abs(dir)
		if err != nil {
			return false
		}
	}
	resolvedDir = filepath.Clean(resolvedDir)

	candidate := filepath.Join(resolvedDir, filepath.Base(p))
	return strings.HasPrefix(candidate, resolvedBase+string(filepath.Separator)) || candidate == resolvedBase
}
