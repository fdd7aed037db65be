package format

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"sub-renamer/internal/node"
)

// Конфиг Clash переписывается построчно: комментарии, порядок ключей,
// якоря и стиль записи остаются как были.
var (
	topKeyRe      = regexp.MustCompile(`^([A-Za-z0-9_.-]+):(?:\s|$)`)
	dashRe        = regexp.MustCompile(`^(\s*)-(?:\s+|$)`)
	blockNameRe   = regexp.MustCompile(`^(\s*(?:-\s+)?)(name:[ \t]*)(.*?)([ \t]*)$`)
	blockServerRe = regexp.MustCompile(`^\s*(?:-\s+)?server:[ \t]*(.*?)[ \t]*$`)
	flowItemRe    = regexp.MustCompile(`^(\s*-\s+)\{(.*)\}([ \t]*(?:#.*)?)$`)
	groupListRe   = regexp.MustCompile(`^(\s*(?:-\s+)?)(proxies:[ \t]*)(.*?)([ \t]*)$`)
	refItemRe     = regexp.MustCompile(`^(\s*-[ \t]+)(.*?)([ \t]*)$`)
)

// RewriteYAML переписывает имена узлов в конфиге Clash/Clash-Meta.
// Если есть секция верхнего уровня proxies, переименовываются только её
// элементы, а ссылки на них в proxy-groups следуют за переименованием.
// Иначе переписывается каждая строка name: в документе.
func RewriteYAML(text string, r node.Renamer) (string, error) {
	lines := strings.Split(text, "\n")
	scoped := hasTopKey(lines, "proxies")
	rf := newRefs()
	out := renameYAMLNodes(lines, scoped, r, rf)
	if scoped && (len(rf.renamed) > 0 || len(rf.removed) > 0) {
		out = updateYAMLGroups(out, rf)
	}
	return strings.Join(out, "\n"), nil
}

func renameYAMLNodes(lines []string, scoped bool, r node.Renamer, rf *refs) []string {
	out := make([]string, 0, len(lines))
	section := ""
	// Текущий элемент последовательности: индекс первой строки в out,
	// отступ дефиса и отступ ключей.
	item, itemIndent, keyIndent := -1, -1, -1
	skip := -1
	// Пустые строки внутри пропуска: отбрасываются, если удаляемый
	// элемент продолжается, иначе возвращаются в вывод.
	var pending []string

	for i, raw := range lines {
		line, cr := strings.CutSuffix(raw, "\r")
		ind := indentOf(line)
		blank := strings.TrimSpace(line) == ""

		if skip >= 0 {
			if blank {
				pending = append(pending, raw)
				continue
			}
			if ind > skip {
				pending = pending[:0]
				continue
			}
			out = append(out, pending...)
			pending = pending[:0]
			skip = -1
		}
		if !blank && ind == 0 {
			if m := topKeyRe.FindStringSubmatch(line); m != nil {
				section = m[1]
				item = -1
			}
		}
		if (scoped && section != "proxies") || blank || isComment(line) {
			out = append(out, raw)
			continue
		}

		isDash := false
		if m := dashRe.FindStringSubmatch(line); m != nil && (item < 0 || len(m[1]) <= itemIndent) {
			isDash = true
			item, itemIndent, keyIndent = len(out), len(m[1]), len(m[0])
		}

		if m := flowItemRe.FindStringSubmatch(line); m != nil {
			rewritten, keep, ok := renameFlowItem(m[1], m[2], m[3], r, rf)
			if ok {
				if !keep {
					item = -1
					continue
				}
				line = rewritten
			}
			out = append(out, withCR(line, cr))
			continue
		}

		m := blockNameRe.FindStringSubmatch(line)
		if m == nil || (!isDash && item >= 0 && ind != keyIndent) {
			out = append(out, raw)
			continue
		}
		val, ok := parseScalar(m[3])
		if !ok {
			out = append(out, raw)
			continue
		}
		host := ""
		if item >= 0 {
			host = blockServer(out[item:], lines[i+1:], itemIndent)
		}
		newName, keep := r.Rename(val.text, host)
		if !keep {
			rf.removed[val.text] = true
			if item >= 0 {
				out = out[:item]
				skip = itemIndent
				item = -1
			}
			continue
		}
		rf.record(val.text, newName)
		out = append(out, withCR(m[1]+m[2]+val.render(newName, false)+m[4], cr))
	}
	return append(out, pending...)
}

// updateYAMLGroups обновляет списки proxies внутри proxy-groups.
func updateYAMLGroups(lines []string, rf *refs) []string {
	out := make([]string, 0, len(lines))
	section := ""
	listIndent := -1

	for _, raw := range lines {
		line, cr := strings.CutSuffix(raw, "\r")
		ind := indentOf(line)
		blank := strings.TrimSpace(line) == ""

		if !blank && ind == 0 {
			if m := topKeyRe.FindStringSubmatch(line); m != nil {
				section = m[1]
				listIndent = -1
			}
		}
		if section != "proxy-groups" || blank || isComment(line) {
			out = append(out, raw)
			continue
		}

		if listIndent >= 0 {
			if m := refItemRe.FindStringSubmatch(line); m != nil && ind >= listIndent {
				val, ok := parseScalar(m[2])
				switch {
				case !ok:
				case rf.removed[val.text]:
					continue
				case rf.renamed[val.text] != "":
					line = m[1] + val.render(rf.renamed[val.text], false) + m[3]
				}
				out = append(out, withCR(line, cr))
				continue
			}
			listIndent = -1
		}

		if m := flowItemRe.FindStringSubmatch(line); m != nil {
			if inner, ok := rewriteFlowField(m[2], "proxies", rf); ok {
				line = m[1] + "{" + inner + "}" + m[3]
			}
			out = append(out, withCR(line, cr))
			continue
		}

		if m := groupListRe.FindStringSubmatch(line); m != nil {
			switch {
			case strings.HasPrefix(m[3], "["):
				if list, ok := rewriteFlowList(m[3], rf); ok {
					line = m[1] + m[2] + list + m[4]
				}
			case m[3] == "" || strings.HasPrefix(m[3], "#"):
				listIndent = len(m[1])
			}
		}
		out = append(out, withCR(line, cr))
	}
	return out
}

// blockServer ищет значение server: в уже выведенных строках элемента и
// в следующих строках, пока отступ больше отступа дефиса.
func blockServer(prior, next []string, itemIndent int) string {
	for _, l := range prior {
		if v, ok := serverValue(l); ok {
			return v
		}
	}
	for _, l := range next {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		if indentOf(l) <= itemIndent {
			break
		}
		if v, ok := serverValue(l); ok {
			return v
		}
	}
	return ""
}

func serverValue(line string) (string, bool) {
	m := blockServerRe.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return "", false
	}
	v, ok := parseScalar(m[1])
	return v.text, ok
}

func renameFlowItem(prefix, inner, suffix string, r node.Renamer, rf *refs) (string, bool, bool) {
	var nameKV, serverKV *flowKV
	for _, kv := range flowPairs(inner) {
		kv := kv
		switch kv.key {
		case "name":
			if nameKV == nil {
				nameKV = &kv
			}
		case "server":
			if serverKV == nil {
				serverKV = &kv
			}
		}
	}
	if nameKV == nil {
		return "", true, false
	}
	val, ok := parseScalar(inner[nameKV.start:nameKV.end])
	if !ok {
		return "", true, false
	}
	host := ""
	if serverKV != nil {
		if s, ok := parseScalar(inner[serverKV.start:serverKV.end]); ok {
			host = s.text
		}
	}
	newName, keep := r.Rename(val.text, host)
	if !keep {
		rf.removed[val.text] = true
		return "", false, true
	}
	rf.record(val.text, newName)
	inner = inner[:nameKV.start] + val.render(newName, true) + inner[nameKV.end:]
	return prefix + "{" + inner + "}" + suffix, true, true
}

// rewriteFlowField переписывает flow-список в поле key flow-мэппинга.
func rewriteFlowField(inner, key string, rf *refs) (string, bool) {
	for _, kv := range flowPairs(inner) {
		if kv.key != key {
			continue
		}
		list, ok := rewriteFlowList(inner[kv.start:kv.end], rf)
		if !ok {
			return "", false
		}
		return inner[:kv.start] + list + inner[kv.end:], true
	}
	return "", false
}

// rewriteFlowList переписывает список вида [a, "b", c] с хвостом после
// закрывающей скобки.
func rewriteFlowList(v string, rf *refs) (string, bool) {
	if !strings.HasPrefix(v, "[") {
		return "", false
	}
	end := matchBracket(v)
	if end < 0 {
		return "", false
	}
	inner := v[1:end]
	var items []string
	for _, span := range flowEntries(inner) {
		t := strings.TrimSpace(inner[span[0]:span[1]])
		if t == "" {
			continue
		}
		val, ok := parseScalar(t)
		switch {
		case !ok:
		case rf.removed[val.text]:
			continue
		case rf.renamed[val.text] != "":
			t = val.render(rf.renamed[val.text], true)
		}
		items = append(items, t)
	}
	return "[" + strings.Join(items, ", ") + "]" + v[end+1:], true
}

// scalar — скалярное значение YAML со стилем записи.
type scalar struct {
	text  string
	style byte   // '"', '\'' или 0 для plain
	rest  string // хвост после значения, например комментарий
}

func parseScalar(v string) (scalar, bool) {
	if v == "" {
		return scalar{}, false
	}
	switch v[0] {
	case '"':
		end := closingDouble(v)
		if end < 0 {
			return scalar{}, false
		}
		var s string
		if err := yaml.Unmarshal([]byte(v[:end+1]), &s); err != nil {
			return scalar{}, false
		}
		return scalar{text: s, style: '"', rest: v[end+1:]}, true
	case '\'':
		end := closingSingle(v)
		if end < 0 {
			return scalar{}, false
		}
		return scalar{text: strings.ReplaceAll(v[1:end], "''", "'"), style: '\'', rest: v[end+1:]}, true
	case '[', '{', '&', '*', '!', '|', '>':
		return scalar{}, false
	}
	text := v
	if i := strings.Index(v, " #"); i >= 0 {
		text = strings.TrimRight(v[:i], " \t")
	}
	return scalar{text: text, rest: v[len(text):]}, true
}

// render записывает новое значение в исходном стиле. Plain-значение,
// которое нельзя записать без кавычек, берётся в двойные.
func (s scalar) render(val string, flow bool) string {
	switch {
	case s.style == '\'':
		return "'" + strings.ReplaceAll(val, "'", "''") + "'" + s.rest
	case s.style == '"' || !plainSafe(val, flow):
		return quoteDouble(val) + s.rest
	default:
		return val + s.rest
	}
}

// plainSafe сообщает, прочитается ли val без кавычек как та же строка.
func plainSafe(val string, flow bool) bool {
	if val == "" || strings.ContainsAny(val, "\n\r\t") {
		return false
	}
	if flow && strings.ContainsAny(val, ",[]{}") {
		return false
	}
	var v interface{}
	if err := yaml.Unmarshal([]byte(val), &v); err != nil {
		return false
	}
	s, ok := v.(string)
	return ok && s == val
}

func quoteDouble(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\' || r == '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			b.WriteString(`\x`)
			b.WriteByte("0123456789ABCDEF"[r>>4])
			b.WriteByte("0123456789ABCDEF"[r&0xf])
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func closingDouble(v string) int {
	for i := 1; i < len(v); i++ {
		switch v[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func closingSingle(v string) int {
	for i := 1; i < len(v); i++ {
		if v[i] != '\'' {
			continue
		}
		if i+1 < len(v) && v[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

// flowKV — пара ключ/значение flow-мэппинга; start:end задают границы
// значения без окружающих пробелов.
type flowKV struct {
	key        string
	start, end int
}

func flowPairs(inner string) []flowKV {
	var pairs []flowKV
	for _, span := range flowEntries(inner) {
		e := inner[span[0]:span[1]]
		colon := strings.Index(e, ":")
		if colon < 0 {
			continue
		}
		key := strings.Trim(strings.TrimSpace(e[:colon]), `"'`)
		start := span[0] + colon + 1
		end := span[1]
		for start < end && (inner[start] == ' ' || inner[start] == '\t') {
			start++
		}
		for end > start && (inner[end-1] == ' ' || inner[end-1] == '\t') {
			end--
		}
		pairs = append(pairs, flowKV{key: key, start: start, end: end})
	}
	return pairs
}

// flowEntries делит содержимое flow-коллекции по запятым верхнего уровня.
func flowEntries(s string) [][2]int {
	var spans [][2]int
	start := 0
	scanFlow(s, func(i int, c byte, depth int) bool {
		if c == ',' && depth == 0 {
			spans = append(spans, [2]int{start, i})
			start = i + 1
		}
		return true
	})
	return append(spans, [2]int{start, len(s)})
}

// matchBracket возвращает индекс скобки, закрывающей s[0].
func matchBracket(s string) int {
	end := -1
	scanFlow(s, func(i int, c byte, depth int) bool {
		if (c == ']' || c == '}') && depth == 0 {
			end = i
			return false
		}
		return true
	})
	return end
}

// scanFlow вызывает fn для каждого байта вне кавычек; depth равна глубине
// вложенности после обработки байта.
func scanFlow(s string, fn func(i int, c byte, depth int) bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case quote == '"' && c == '\\':
				i++
			case quote == '\'' && c == '\'' && i+1 < len(s) && s[i+1] == '\'':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			if atValueStart(s, i) {
				quote = c
				continue
			}
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		}
		if !fn(i, c, depth) {
			return
		}
	}
}

// atValueStart сообщает, начинается ли с позиции i новое значение, то
// есть кавычка открывает строку, а не стоит внутри plain-значения.
func atValueStart(s string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch s[j] {
		case ' ', '\t':
			continue
		case ':', ',', '[', '{':
			return true
		default:
			return false
		}
	}
	return true
}

func hasTopKey(lines []string, key string) bool {
	for _, l := range lines {
		if m := topKeyRe.FindStringSubmatch(strings.TrimSuffix(l, "\r")); m != nil && m[1] == key {
			return true
		}
	}
	return false
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func withCR(line string, cr bool) string {
	if cr {
		return line + "\r"
	}
	return line
}
