// Package ss переименовывает узлы в ss:// ссылках. Поддерживаются форма
// SIP002 (userinfo в base64 или открытым текстом) и старая форма, где
// base64 закодировано всё тело method:password@host:port. Тело ссылки
// сохраняется в исходной кодировке, меняется только фрагмент.
package ss

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"sub-renamer/internal/node"
	"sub-renamer/internal/utils"
)

const (
	maxURILength      = 8192
	maxUserinfoLength = 1024
)

type SSLink struct{}

func NewSSLink() *SSLink {
	return &SSLink{}
}

func (s *SSLink) Matches(sLink string) bool {
	return strings.HasPrefix(strings.ToLower(sLink), "ss://")
}

func (s *SSLink) Process(sLink string, r node.Renamer) (string, error) {
	if len(sLink) > maxURILength {
		return "", fmt.Errorf("line too long")
	}
	body, _, _ := utils.SplitFragment(sLink)
	if len(body) <= len("ss://") {
		return "", fmt.Errorf("empty Shadowsocks payload")
	}
	rest := body[len("ss://"):]

	var host string
	var err error
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		host, err = sip002Host(body, rest[:at], rest[at+1:])
	} else {
		host, err = legacyHost(rest)
	}
	if err != nil {
		return "", err
	}
	return node.RenameFragment(sLink, host, r)
}

// sip002Host проверяет userinfo и возвращает хост сервера.
func sip002Host(body, userinfo, hostPart string) (string, error) {
	if userinfo == "" || len(userinfo) > maxUserinfoLength {
		return "", fmt.Errorf("missing or too long userinfo")
	}
	if !strings.Contains(userinfo, ":") {
		decoded, err := utils.DecodeUserInfo(userinfo)
		if err != nil {
			// userinfo может быть percent-encoded
			unescaped, uerr := url.PathUnescape(userinfo)
			if uerr != nil || !strings.Contains(unescaped, ":") {
				return "", fmt.Errorf("invalid Shadowsocks base64 encoding")
			}
		} else if !strings.Contains(string(decoded), ":") {
			return "", fmt.Errorf("invalid cipher:password format")
		}
	}
	if u, err := url.Parse(body); err == nil && u.Host != "" {
		return utils.ServerHost(u), nil
	}
	return hostOf(hostPart), nil
}

// legacyHost декодирует тело вида base64(method:password@host:port).
func legacyHost(rest string) (string, error) {
	encoded, _, _ := strings.Cut(rest, "?")
	encoded = strings.TrimSuffix(encoded, "/")
	data, _, err := utils.DecodeBase64(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid Shadowsocks base64 encoding: %w", err)
	}
	decoded := string(data)
	at := strings.LastIndex(decoded, "@")
	if at < 0 || !strings.Contains(decoded[:at], ":") {
		return "", fmt.Errorf("invalid legacy Shadowsocks body")
	}
	return hostOf(decoded[at+1:]), nil
}

// hostOf извлекает хост из "host:port[/...]"; пустая строка, если хост
// невалиден.
func hostOf(hostPort string) string {
	if i := strings.IndexAny(hostPort, "/?"); i >= 0 {
		hostPort = hostPort[:i]
	}
	host, _, err := net.SplitHostPort(hostPort)
	if err != nil || !utils.IsValidHost(host) {
		return ""
	}
	return host
}
