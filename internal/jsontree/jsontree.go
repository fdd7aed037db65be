// Package jsontree — упорядоченное дерево JSON поверх json-iterator.
// В отличие от map[string]interface{} сохраняет порядок ключей, дубликаты
// и исходную запись чисел, поэтому после переписывания имён документ
// отличается от исходного только этими полями и форматированием.
package jsontree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Kind — тип значения узла.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// Node — значение JSON.
type Node struct {
	Kind   Kind
	Str    string // String
	Raw    string // Number и Bool в исходной записи
	Items  []*Node
	Fields []*Field
}

// Field — пара ключ/значение объекта.
type Field struct {
	Key   string
	Value *Node
}

var (
	readAPI    = jsoniter.ConfigCompatibleWithStandardLibrary
	compactAPI = jsoniter.Config{EscapeHTML: false}.Froze()
	indentAPI  = jsoniter.Config{EscapeHTML: false, IndentionStep: 2}.Froze()
)

// ErrInvalid возвращается для невалидного JSON.
var ErrInvalid = errors.New("invalid JSON")

// Valid сообщает, является ли data одним валидным значением JSON без
// мусора после него.
func Valid(data []byte) bool {
	iter := jsoniter.ParseBytes(readAPI, data)
	iter.Skip()
	if iter.Error != nil {
		return false
	}
	iter.WhatIsNext()
	return iter.Error == io.EOF
}

// Parse разбирает data в дерево.
func Parse(data []byte) (*Node, error) {
	if !Valid(data) {
		return nil, ErrInvalid
	}
	iter := jsoniter.ParseBytes(readAPI, data)
	n := readNode(iter)
	if iter.Error != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", iter.Error)
	}
	return n, nil
}

func readNode(iter *jsoniter.Iterator) *Node {
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		return &Node{Kind: String, Str: iter.ReadString()}
	case jsoniter.NumberValue:
		return &Node{Kind: Number, Raw: string(iter.ReadNumber())}
	case jsoniter.BoolValue:
		if iter.ReadBool() {
			return &Node{Kind: Bool, Raw: "true"}
		}
		return &Node{Kind: Bool, Raw: "false"}
	case jsoniter.NilValue:
		iter.ReadNil()
		return &Node{Kind: Null}
	case jsoniter.ArrayValue:
		n := &Node{Kind: Array}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			n.Items = append(n.Items, readNode(it))
			return it.Error == nil
		})
		return n
	case jsoniter.ObjectValue:
		n := &Node{Kind: Object}
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			n.Fields = append(n.Fields, &Field{Key: key, Value: readNode(it)})
			return it.Error == nil
		})
		return n
	default:
		iter.ReportError("readNode", "unexpected token")
		return &Node{Kind: Null}
	}
}

// Marshal сериализует дерево. indent=true — отступ в два пробела.
func (n *Node) Marshal(indent bool) ([]byte, error) {
	api := compactAPI
	if indent {
		api = indentAPI
	}
	stream := jsoniter.NewStream(api, nil, 4096)
	writeNode(stream, n)
	if stream.Error != nil {
		return nil, fmt.Errorf("failed to write JSON: %w", stream.Error)
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func writeNode(stream *jsoniter.Stream, n *Node) {
	switch n.Kind {
	case String:
		stream.WriteString(n.Str)
	case Number, Bool:
		stream.WriteRaw(n.Raw)
	case Null:
		stream.WriteNil()
	case Array:
		if len(n.Items) == 0 {
			stream.WriteRaw("[]")
			return
		}
		stream.WriteArrayStart()
		for i, item := range n.Items {
			if i > 0 {
				stream.WriteMore()
			}
			writeNode(stream, item)
		}
		stream.WriteArrayEnd()
	case Object:
		if len(n.Fields) == 0 {
			stream.WriteRaw("{}")
			return
		}
		stream.WriteObjectStart()
		for i, f := range n.Fields {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(f.Key)
			writeNode(stream, f.Value)
		}
		stream.WriteObjectEnd()
	}
}

// NewString создаёт строковый узел.
func NewString(s string) *Node {
	return &Node{Kind: String, Str: s}
}

// Get возвращает значение первого поля с ключом key или nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != Object {
		return nil
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// GetFold — Get без учёта регистра ключа.
func (n *Node) GetFold(key string) *Node {
	if n == nil || n.Kind != Object {
		return nil
	}
	for _, f := range n.Fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return nil
}

// String возвращает строковое значение поля key.
func (n *Node) String(key string) (string, bool) {
	v := n.Get(key)
	if v == nil || v.Kind != String {
		return "", false
	}
	return v.Str, true
}

// SetString заменяет значение всех полей key; если поля нет, оно
// добавляется в конец объекта.
func (n *Node) SetString(key, value string) {
	if n == nil || n.Kind != Object {
		return
	}
	found := false
	for _, f := range n.Fields {
		if f.Key == key {
			f.Value = NewString(value)
			found = true
		}
	}
	if !found {
		n.Fields = append(n.Fields, &Field{Key: key, Value: NewString(value)})
	}
}

// Strings возвращает строковые элементы массива.
func (n *Node) Strings() []string {
	if n == nil || n.Kind != Array {
		return nil
	}
	out := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		if item.Kind == String {
			out = append(out, item.Str)
		}
	}
	return out
}

// Delete удаляет все поля key.
func (n *Node) Delete(key string) {
	if n == nil || n.Kind != Object {
		return
	}
	kept := n.Fields[:0]
	for _, f := range n.Fields {
		if f.Key != key {
			kept = append(kept, f)
		}
	}
	n.Fields = kept
}
