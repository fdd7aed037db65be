package format

import (
	"errors"
	"strings"

	"sub-renamer/hysteria2"
	"sub-renamer/internal/node"
	"sub-renamer/internal/utils"
	"sub-renamer/ss"
	"sub-renamer/trojan"
	"sub-renamer/vless"
	"sub-renamer/vmess"
)

// Links возвращает обработчики протоколов в порядке проверки.
func Links() []node.ProxyLink {
	return []node.ProxyLink{
		vmess.VMessLink{},
		vless.VLESSLink{},
		ss.NewSSLink(),
		trojan.NewTrojanLink(),
		hysteria2.Hysteria2Link{},
	}
}

// RewriteURIList переписывает список ссылок по одной на строку.
// Пустые строки и комментарии сохраняются, строки неизвестных схем и
// строки, которые не удалось разобрать, остаются без изменений.
func RewriteURIList(text string, r node.Renamer) (string, error) {
	return rewriteLines(text, func(line string) (string, bool) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return line, true
		}
		for _, link := range Links() {
			if !link.Matches(trimmed) {
				continue
			}
			out, err := link.Process(trimmed, r)
			switch {
			case errors.Is(err, node.ErrFiltered):
				return "", false
			case err != nil:
				return line, true
			}
			return out, true
		}
		return line, true
	}), nil
}

// RewritePlainText переписывает нераспознанный текст: именем считается
// всё после последнего '#' в строке.
func RewritePlainText(text string, r node.Renamer) (string, error) {
	return rewriteLines(text, func(line string) (string, bool) {
		return renameLastFragment(line, r)
	}), nil
}

func renameLastFragment(line string, r node.Renamer) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line, true
	}
	i := strings.LastIndex(line, "#")
	if i < 0 {
		return line, true
	}
	name, ok := r.Rename(utils.UnescapeFragment(line[i+1:]), "")
	if !ok {
		return "", false
	}
	return line[:i+1] + utils.EscapeFragment(name), true
}

// rewriteLines применяет fn к каждой строке; keep=false удаляет строку.
// Окончания строк CRLF сохраняются.
func rewriteLines(text string, fn func(line string) (string, bool)) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, raw := range lines {
		line, cr := strings.CutSuffix(raw, "\r")
		res, keep := fn(line)
		if !keep {
			continue
		}
		out = append(out, withCR(res, cr))
	}
	return strings.Join(out, "\n")
}
