// Package format определяет форму документа подписки и переписывает имена
// узлов, сохраняя исходную сериализацию.
package format

import (
	"strings"

	"sub-renamer/internal/jsontree"
	"sub-renamer/internal/utils"
)

// Kind — форма документа подписки.
type Kind int

const (
	PlainText Kind = iota
	JSON
	YAML
	Base64
	URIList
)

func (k Kind) String() string {
	switch k {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case Base64:
		return "base64"
	case URIList:
		return "urilist"
	default:
		return "plaintext"
	}
}

var (
	yamlMarkers = []string{"proxies:", "proxy-groups:", "rules:"}
	uriSchemes  = []string{"vmess://", "vless://", "ss://", "trojan://", "hysteria2://", "hy2://"}
)

// Classify определяет форму документа. Правила проверяются по порядку,
// первое совпадение побеждает.
func Classify(contentType, text string) Kind {
	ct := strings.ToLower(contentType)
	body := strings.TrimSpace(strings.TrimPrefix(text, bom))

	if strings.Contains(ct, "json") || jsontree.Valid([]byte(body)) {
		return JSON
	}
	if strings.Contains(ct, "yaml") || strings.Contains(ct, "yml") || containsAny(body, yamlMarkers) {
		return YAML
	}
	if hasURILine(body) {
		return URIList
	}
	if _, _, ok := utils.DecodeBase64Text(body); ok {
		return Base64
	}
	return PlainText
}

const bom = "\uFEFF"

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasURILine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if isURILine(line) {
			return true
		}
	}
	return false
}

func isURILine(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	for _, scheme := range uriSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
