package rename

import "strconv"

// Register считает вхождения оформленных имён в пределах одного прогона.
// Создаётся заново на каждый вызов обработки подписки и никогда не
// разделяется между запросами.
type Register struct {
	counts map[string]int
}

// NewRegister создаёт пустой реестр.
func NewRegister() *Register {
	return &Register{counts: make(map[string]int)}
}

// Resolve возвращает base при первом вхождении и base-N при N-м.
func (r *Register) Resolve(base string) string {
	n := r.counts[base] + 1
	r.counts[base] = n
	if n == 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Len возвращает число различных имён.
func (r *Register) Len() int {
	return len(r.counts)
}
