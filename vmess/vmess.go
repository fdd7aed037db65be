// Пакет vmess — обработчик ссылок VMess (base64-encoded JSON).
// Переименовывает узел в полях ps/remarks/name, сохраняя порядок ключей
// и вариант base64 исходной ссылки.
package vmess

import (
	"errors"
	"fmt"
	"strings"

	"sub-renamer/internal/jsontree"
	"sub-renamer/internal/node"
	"sub-renamer/internal/utils"
)

const (
	scheme       = "vmess://"
	maxURILength = 8192
)

// nameKeys — поля имени в порядке приоритета.
var nameKeys = []string{"ps", "remarks", "name"}

var errNoName = errors.New("VMess config has no name field")

// VMessLink — реализация интерфейса node.ProxyLink для VMess.
type VMessLink struct{}

// Matches проверяет префикс vmess://.
func (VMessLink) Matches(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), scheme)
}

// Process переименовывает VMess-ссылку.
func (VMessLink) Process(s string, r node.Renamer) (string, error) {
	if len(s) > maxURILength {
		return "", fmt.Errorf("line too long")
	}
	if len(s) <= len(scheme) {
		return "", fmt.Errorf("empty VMess payload")
	}
	payload, frag, hasFrag := utils.SplitFragment(s[len(scheme):])
	out, name, err := RewritePayload(payload, r)
	if err != nil {
		return "", err
	}
	result := s[:len(scheme)] + out
	if hasFrag && frag != "" {
		result += "#" + utils.EscapeFragment(name)
	}
	return result, nil
}

// RewritePayload декодирует base64 JSON-конфиг, переименовывает узел и
// кодирует обратно тем же алфавитом и с тем же padding. Возвращает новый
// payload и новое имя. Используется и для VLESS-ссылок в том же формате.
func RewritePayload(payload string, r node.Renamer) (string, string, error) {
	data, enc, err := utils.DecodeBase64(payload)
	if err != nil {
		return "", "", fmt.Errorf("invalid VMess base64 encoding: %w", err)
	}
	cfg, err := jsontree.Parse(data)
	if err != nil {
		return "", "", fmt.Errorf("invalid VMess JSON format: %w", err)
	}
	if cfg.Kind != jsontree.Object {
		return "", "", fmt.Errorf("invalid VMess JSON format: not an object")
	}

	var name string
	var keys []string
	for _, k := range nameKeys {
		if v, ok := cfg.String(k); ok {
			if len(keys) == 0 {
				name = v
			}
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", "", errNoName
	}

	host, _ := cfg.String("add")
	newName, ok := r.Rename(name, host)
	if !ok {
		return "", "", node.ErrFiltered
	}
	for _, k := range keys {
		cfg.SetString(k, newName)
	}
	out, err := cfg.Marshal(false)
	if err != nil {
		return "", "", fmt.Errorf("failed to re-encode VMess config: %w", err)
	}
	return enc.EncodeToString(out), newName, nil
}
