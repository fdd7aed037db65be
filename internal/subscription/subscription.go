// Package subscription связывает определение формы документа,
// адаптеры форматов и нормализатор имён в одну операцию над подпиской.
package subscription

import (
	"time"

	"github.com/sirupsen/logrus"

	"sub-renamer/internal/format"
	"sub-renamer/internal/rename"
	"sub-renamer/internal/rules"
)

// Request — входные данные одного преобразования.
type Request struct {
	Text        string
	ContentType string
	Config      rename.Config
}

// Stats — счётчики одного преобразования.
type Stats struct {
	Renamed  int
	Filtered int
}

// Result — итог преобразования. PreserveContentType означает, что
// ответ нужно отдавать с Content-Type исходной подписки.
type Result struct {
	Text                string
	Kind                format.Kind
	PreserveContentType bool
	Stats               Stats
}

// Processor безопасен для конкурентного использования: на каждый вызов
// Process создаётся свой реестр имён.
type Processor struct {
	table   *rules.Table
	locator rename.Locator
	log     logrus.FieldLogger
}

// Option настраивает Processor.
type Option func(*Processor)

// WithTable задаёт таблицы правил.
func WithTable(t *rules.Table) Option {
	return func(p *Processor) {
		if t != nil {
			p.table = t
		}
	}
}

// WithLocator включает определение региона по IP сервера.
func WithLocator(l rename.Locator) Option {
	return func(p *Processor) { p.locator = l }
}

// WithLogger задаёт логгер.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProcessor создаёт процессор со встроенными таблицами.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{table: rules.Default(), log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process переписывает имена узлов в подписке. Ошибка адаптера не
// прерывает обработку: возвращается исходный текст.
func (p *Processor) Process(req Request) Result {
	start := time.Now()
	n := p.Normalizer(req.Config)
	c := &counter{next: n}

	out, kind, err := format.Rewrite(req.ContentType, req.Text, c)
	log := p.log.WithFields(logrus.Fields{
		"kind":     kind.String(),
		"lang":     req.Config.Language.String(),
		"renamed":  c.stats.Renamed,
		"filtered": c.stats.Filtered,
		"bytes":    len(req.Text),
		"elapsed":  time.Since(start).String(),
	})
	if err != nil {
		log.WithError(err).Debug("subscription left unchanged")
		return Result{Text: req.Text, Kind: kind, PreserveContentType: true}
	}
	log.Info("subscription processed")
	return Result{Text: out, Kind: kind, PreserveContentType: true, Stats: c.stats}
}

// Normalizer создаёт нормализатор с новым реестром и настройками
// процессора.
func (p *Processor) Normalizer(cfg rename.Config) *rename.Normalizer {
	opts := []rename.Option{rename.WithTable(p.table)}
	if p.locator != nil {
		opts = append(opts, rename.WithLocator(p.locator))
	}
	return rename.New(cfg, rename.NewRegister(), opts...)
}

// counter считает исходы переименования.
type counter struct {
	next  *rename.Normalizer
	stats Stats
}

func (c *counter) Rename(name, host string) (string, bool) {
	out, ok := c.next.Rename(name, host)
	if ok {
		c.stats.Renamed++
	} else {
		c.stats.Filtered++
	}
	return out, ok
}
