// Package trojan переименовывает узлы в trojan:// ссылках.
package trojan

import (
	"fmt"
	"net/url"
	"strings"

	"sub-renamer/internal/node"
	"sub-renamer/internal/utils"
)

const maxURILength = 8192

// TrojanLink обрабатывает Trojan-URI (trojan://).
//
//nolint:revive
type TrojanLink struct{}

// NewTrojanLink создаёт новый обработчик Trojan.
func NewTrojanLink() *TrojanLink {
	return &TrojanLink{}
}

// Matches сообщает, что строка соответствует формату Trojan URI (trojan://).
func (t *TrojanLink) Matches(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "trojan://")
}

// Process заменяет имя во фрагменте. Пароль, адрес и параметры не
// меняются ни в одном байте.
func (t *TrojanLink) Process(s string, r node.Renamer) (string, error) {
	if len(s) > maxURILength {
		return "", fmt.Errorf("line too long")
	}
	body, _, _ := utils.SplitFragment(s)
	u, err := url.Parse(body)
	if err != nil || u.Scheme != "trojan" {
		return "", fmt.Errorf("invalid Trojan URL format")
	}
	if u.User.Username() == "" || u.Host == "" {
		return "", fmt.Errorf("missing password or host")
	}
	return node.RenameFragment(s, utils.ServerHost(u), r)
}
