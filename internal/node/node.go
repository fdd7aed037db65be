// Package node описывает общий контракт между адаптерами форматов и
// нормализатором имён.
package node

import (
	"errors"

	"sub-renamer/internal/utils"
)

// ErrFiltered возвращается обработчиком ссылки, когда узел должен быть
// удалён из вывода. Это не ошибка разбора.
var ErrFiltered = errors.New("node filtered")

// Renamer переименовывает один узел. host: адрес сервера узла, если
// адаптер смог его извлечь (может быть пустым). ok=false означает, что
// узел отфильтрован.
type Renamer interface {
	Rename(name, host string) (newName string, ok bool)
}

// RenamerFunc позволяет использовать функцию как Renamer.
type RenamerFunc func(name, host string) (string, bool)

// Rename реализует Renamer.
func (f RenamerFunc) Rename(name, host string) (string, bool) {
	return f(name, host)
}

// ProxyLink — обработчик одной строки-ссылки конкретного протокола.
// Process возвращает переписанную строку, ErrFiltered для удаляемого
// узла или иную ошибку, если строку не удалось разобрать (тогда вызывающий
// оставляет строку без изменений).
type ProxyLink interface {
	Matches(s string) bool
	Process(s string, r Renamer) (string, error)
}

// RenameFragment переименовывает узел, имя которого хранится во фрагменте
// ссылки после первого '#'. Ссылка без фрагмента получает его.
func RenameFragment(link, host string, r Renamer) (string, error) {
	body, frag, _ := utils.SplitFragment(link)
	name, ok := r.Rename(utils.UnescapeFragment(frag), host)
	if !ok {
		return "", ErrFiltered
	}
	return body + "#" + utils.EscapeFragment(name), nil
}
