package format

import (
	"fmt"

	"sub-renamer/internal/node"
)

// RewriteFunc переписывает имена узлов в документе одной формы.
type RewriteFunc func(text string, r node.Renamer) (string, error)

var rewriters = map[Kind]RewriteFunc{
	JSON:      RewriteJSON,
	YAML:      RewriteYAML,
	Base64:    RewriteBase64,
	URIList:   RewriteURIList,
	PlainText: RewritePlainText,
}

// Rewrite определяет форму документа и переписывает имена узлов.
// Если адаптер не справился, возвращается исходный текст без изменений
// вместе с ошибкой: вызывающий решает, логировать ли её.
func Rewrite(contentType, text string, r node.Renamer) (string, Kind, error) {
	kind := Classify(contentType, text)
	out, err := rewriters[kind](text, r)
	if err != nil {
		return text, kind, fmt.Errorf("%s adapter: %w", kind, err)
	}
	return out, kind, nil
}
