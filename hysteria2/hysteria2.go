// Пакет hysteria2 — обработчик ссылок Hysteria2.
// Поддерживает оба префикса: hysteria2:// и hy2://.
package hysteria2

import (
	"fmt"
	"net/url"
	"strings"

	"sub-renamer/internal/node"
	"sub-renamer/internal/utils"
)

// Hysteria2Link — реализация интерфейса node.ProxyLink для Hysteria2.
type Hysteria2Link struct{}

// Matches проверяет оба допустимых префикса.
func (Hysteria2Link) Matches(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "hysteria2://") || strings.HasPrefix(lower, "hy2://")
}

// Process переименовывает Hysteria2-ссылку.
func (Hysteria2Link) Process(s string, r node.Renamer) (string, error) {
	const maxURILength = 8192
	if len(s) > maxURILength {
		return "", fmt.Errorf("line too long")
	}
	body, _, _ := utils.SplitFragment(s)
	lower := strings.ToLower(body)
	var rest string
	switch {
	case strings.HasPrefix(lower, "hysteria2://"):
		rest = body[len("hysteria2://"):]
	case strings.HasPrefix(lower, "hy2://"):
		rest = body[len("hy2://"):]
	default:
		return "", fmt.Errorf("invalid Hysteria2 scheme (expected 'hysteria2' or 'hy2')")
	}
	if rest == "" {
		return "", fmt.Errorf("missing host")
	}
	// Диапазон портов (port hopping) url.Parse не принимает; такой узел
	// переименовывается без определения страны.
	host := ""
	if u, err := url.Parse(body); err == nil {
		host = utils.ServerHost(u)
	}
	return node.RenameFragment(s, host, r)
}
