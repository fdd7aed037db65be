package format

import (
	"fmt"
	"strings"

	"sub-renamer/internal/jsontree"
	"sub-renamer/internal/node"
)

// nameKeys — поля имени узла в порядке приоритета.
var nameKeys = []string{"tag", "name", "ps", "remark", "remarks", "alias"}

// Исходящие sing-box, которые не являются узлами.
var singboxSkipTypes = map[string]bool{
	"selector": true,
	"urltest":  true,
	"direct":   true,
	"block":    true,
	"dns":      true,
}

// refs хранит переименования и удаления в пределах документа, чтобы
// обновить ссылки групп на узлы.
type refs struct {
	renamed map[string]string
	removed map[string]bool
}

func newRefs() *refs {
	return &refs{renamed: make(map[string]string), removed: make(map[string]bool)}
}

func (rf *refs) record(old, renamed string) {
	if _, ok := rf.renamed[old]; !ok {
		rf.renamed[old] = renamed
	}
}

// apply переписывает массив имён: переименованные заменяются,
// удалённые выбрасываются.
func (rf *refs) apply(list *jsontree.Node) {
	if list == nil || list.Kind != jsontree.Array {
		return
	}
	kept := list.Items[:0]
	for _, item := range list.Items {
		if item.Kind == jsontree.String {
			if rf.removed[item.Str] {
				continue
			}
			if n, ok := rf.renamed[item.Str]; ok {
				item = jsontree.NewString(n)
			}
		}
		kept = append(kept, item)
	}
	list.Items = kept
}

// RewriteJSON переписывает имена в JSON-документе: конфиг sing-box
// (outbounds), Clash в JSON (proxies), массив узлов или произвольное
// дерево. Порядок ключей и запись чисел сохраняются, вывод с отступом
// в два пробела.
func RewriteJSON(text string, r node.Renamer) (string, error) {
	root, err := jsontree.Parse([]byte(strings.TrimPrefix(text, bom)))
	if err != nil {
		return "", fmt.Errorf("failed to parse JSON subscription: %w", err)
	}

	switch {
	case root.Kind == jsontree.Array:
		root.Items = renameEntries(root.Items, r, nil)
	case isArray(root.Get("outbounds")):
		rewriteSingbox(root, r)
	case isArray(root.Get("proxies")):
		rewriteClashJSON(root, r)
	default:
		renameGeneric(root, r)
	}

	out, err := root.Marshal(true)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(text, "\n") {
		out = append(out, '\n')
	}
	return string(out), nil
}

func isArray(n *jsontree.Node) bool {
	return n != nil && n.Kind == jsontree.Array
}

func rewriteSingbox(root *jsontree.Node, r node.Renamer) {
	outbounds := root.Get("outbounds")
	rf := newRefs()
	kept := outbounds.Items[:0]
	for _, ob := range outbounds.Items {
		if ob.Kind != jsontree.Object {
			kept = append(kept, ob)
			continue
		}
		typ, _ := ob.String("type")
		tag, hasTag := ob.String("tag")
		if !hasTag || singboxSkipTypes[strings.ToLower(typ)] || tag == "direct" || tag == "block" {
			kept = append(kept, ob)
			continue
		}
		host, _ := ob.String("server")
		newTag, ok := r.Rename(tag, host)
		if !ok {
			rf.removed[tag] = true
			continue
		}
		rf.record(tag, newTag)
		ob.SetString("tag", newTag)
		kept = append(kept, ob)
	}
	outbounds.Items = kept

	for _, ob := range kept {
		typ, _ := ob.String("type")
		if t := strings.ToLower(typ); t != "selector" && t != "urltest" {
			continue
		}
		rf.apply(ob.Get("outbounds"))
		if def, ok := ob.String("default"); ok {
			switch {
			case rf.removed[def]:
				ob.Delete("default")
			case rf.renamed[def] != "":
				ob.SetString("default", rf.renamed[def])
			}
		}
	}

	// Ссылки маршрутизации: переименованные узлы подставляются, правила на
	// удалённые узлы убираются, final на удалённый узел снимается
	// (sing-box тогда берёт первый outbound).
	route := root.Get("route")
	if final, ok := route.String("final"); ok {
		switch {
		case rf.removed[final]:
			route.Delete("final")
		case rf.renamed[final] != "":
			route.SetString("final", rf.renamed[final])
		}
	}
	if rules := route.Get("rules"); isArray(rules) {
		kept := rules.Items[:0]
		for _, rule := range rules.Items {
			if out, ok := rule.String("outbound"); ok {
				if rf.removed[out] {
					continue
				}
				if rf.renamed[out] != "" {
					rule.SetString("outbound", rf.renamed[out])
				}
			}
			kept = append(kept, rule)
		}
		rules.Items = kept
	}
}

func rewriteClashJSON(root *jsontree.Node, r node.Renamer) {
	proxies := root.Get("proxies")
	rf := newRefs()
	proxies.Items = renameEntries(proxies.Items, r, rf)

	groups := root.Get("proxy-groups")
	if !isArray(groups) {
		return
	}
	for _, g := range groups.Items {
		rf.apply(g.Get("proxies"))
	}
}

// renameEntries переименовывает объекты-узлы массива и убирает
// отфильтрованные. Элементы без поля имени остаются как есть.
func renameEntries(items []*jsontree.Node, r node.Renamer, rf *refs) []*jsontree.Node {
	kept := items[:0]
	for _, item := range items {
		field, name, ok := entryName(item, false)
		if !ok {
			kept = append(kept, item)
			continue
		}
		newName, keep := r.Rename(name, entryHost(item))
		if !keep {
			if rf != nil {
				rf.removed[name] = true
			}
			continue
		}
		if rf != nil {
			rf.record(name, newName)
		}
		setName(item, field, name, newName)
		kept = append(kept, item)
	}
	return kept
}

// renameGeneric обходит произвольное дерево. Возвращает false, если
// объект отфильтрован и должен быть удалён из родительского массива.
func renameGeneric(n *jsontree.Node, r node.Renamer) bool {
	switch n.Kind {
	case jsontree.Object:
		if field, name, ok := entryName(n, true); ok {
			newName, keep := r.Rename(name, entryHost(n))
			if !keep {
				return false
			}
			setName(n, field, name, newName)
		}
		for _, f := range n.Fields {
			renameGeneric(f.Value, r)
		}
	case jsontree.Array:
		kept := n.Items[:0]
		for _, item := range n.Items {
			if renameGeneric(item, r) {
				kept = append(kept, item)
			}
		}
		n.Items = kept
	}
	return true
}

// Подстроки ключей, по которым общий обход узнаёт поле имени
// (nodeName, remarkText, ps_name и т.п.).
var nameKeyParts = []string{"name", "tag", "ps", "remark"}

// Поля соединения и служебные поля, которые содержат эти подстроки, но
// именем узла не являются. Ключи сравниваются в нижнем регистре без '_'
// и '-'.
var nameKeyDeny = map[string]bool{
	"servername":  true,
	"hostname":    true,
	"username":    true,
	"servicename": true,
	"sni":         true,
	"domainname":  true,
	"nameserver":  true,
	"nameservers": true,
	"namespace":   true,
	"filename":    true,
	"pathname":    true,
	"groups":      true,
	"upstream":    true,
	"https":       true,
	"ips":         true,
}

// entryName находит поле имени: сначала точные ключи nameKeys по
// приоритету (без учёта регистра), затем, если fuzzy, первый ключ,
// содержащий одну из подстрок nameKeyParts.
func entryName(n *jsontree.Node, fuzzy bool) (field *jsontree.Node, name string, ok bool) {
	if n == nil || n.Kind != jsontree.Object {
		return nil, "", false
	}
	for _, want := range nameKeys {
		if v := n.GetFold(want); v != nil && v.Kind == jsontree.String {
			return v, v.Str, true
		}
	}
	if !fuzzy {
		return nil, "", false
	}
	for _, f := range n.Fields {
		if f.Value.Kind == jsontree.String && isNameLikeKey(f.Key) {
			return f.Value, f.Value.Str, true
		}
	}
	return nil, "", false
}

// setName записывает новое имя в поле field и в соседние поля имени
// с тем же старым значением.
func setName(n *jsontree.Node, field *jsontree.Node, old, renamed string) {
	for _, f := range n.Fields {
		if f.Value == field {
			f.Value = jsontree.NewString(renamed)
			continue
		}
		if f.Value.Kind == jsontree.String && f.Value.Str == old && (isNameKey(f.Key) || isNameLikeKey(f.Key)) {
			f.Value = jsontree.NewString(renamed)
		}
	}
}

func isNameKey(k string) bool {
	for _, want := range nameKeys {
		if strings.EqualFold(k, want) {
			return true
		}
	}
	return false
}

func isNameLikeKey(k string) bool {
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(k))
	if nameKeyDeny[norm] {
		return false
	}
	for _, part := range nameKeyParts {
		if strings.Contains(norm, part) {
			return true
		}
	}
	return false
}

func entryHost(n *jsontree.Node) string {
	if h, ok := n.String("server"); ok {
		return h
	}
	h, _ := n.String("add")
	return h
}
