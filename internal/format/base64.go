package format

import (
	"fmt"
	"strings"

	"sub-renamer/internal/node"
	"sub-renamer/internal/utils"
)

// RewriteBase64 декодирует подписку, переписывает содержимое по его
// собственной форме и кодирует обратно тем же алфавитом и с тем же
// padding. Вложенный base64 не разворачивается.
func RewriteBase64(text string, r node.Renamer) (string, error) {
	data, enc, err := utils.DecodeBase64(strings.TrimPrefix(text, bom))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 subscription: %w", err)
	}
	payload := string(data)

	var out string
	switch Classify("", payload) {
	case JSON:
		out, err = RewriteJSON(payload, r)
	case YAML:
		out, err = RewriteYAML(payload, r)
	case URIList:
		out, err = RewriteURIList(payload, r)
	default:
		out, err = RewritePlainText(payload, r)
	}
	if err != nil {
		return "", err
	}
	encoded := enc.EncodeToString([]byte(out))
	if strings.HasSuffix(text, "\n") {
		encoded += "\n"
	}
	return encoded, nil
}
