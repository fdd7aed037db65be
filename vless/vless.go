// Пакет vless — обработчик ссылок VLESS.
// Поддерживает обычную URI-форму (имя во фрагменте) и форму
// vless://base64(JSON), которую выдают некоторые панели.
package vless

import (
	"fmt"
	"net/url"
	"strings"

	"sub-renamer/internal/node"
	"sub-renamer/internal/utils"
	"sub-renamer/vmess"
)

const maxURILength = 8192

// VLESSLink — реализация интерфейса node.ProxyLink для VLESS.
type VLESSLink struct{}

// Matches проверяет, начинается ли строка с vless://.
func (VLESSLink) Matches(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "vless://")
}

// Process переименовывает VLESS-ссылку.
func (VLESSLink) Process(s string, r node.Renamer) (string, error) {
	if len(s) > maxURILength {
		return "", fmt.Errorf("line too long")
	}
	body, frag, hasFrag := utils.SplitFragment(s)
	if len(body) <= len("vless://") {
		return "", fmt.Errorf("empty VLESS payload")
	}
	rest := body[len("vless://"):]
	if !strings.Contains(rest, "@") {
		out, name, err := vmess.RewritePayload(rest, r)
		if err != nil {
			return "", fmt.Errorf("VLESS: %w", err)
		}
		result := body[:len("vless://")] + out
		// Фрагмент дублирует имя из JSON и переименовывается вместе с ним.
		if hasFrag && frag != "" {
			result += "#" + utils.EscapeFragment(name)
		}
		return result, nil
	}

	u, err := url.Parse(body)
	if err != nil || u.Scheme != "vless" || u.Host == "" {
		return "", fmt.Errorf("invalid VLESS URL format")
	}
	return node.RenameFragment(s, utils.ServerHost(u), r)
}
