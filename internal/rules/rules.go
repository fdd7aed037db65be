// Package rules содержит таблицы шаблонов, по которым нормализуются имена
// узлов: правила регионов, стоп-слова и сохраняемые ключевые слова.
//
// Порядок правил регионов значим: побеждает первое совпавшее правило,
// поэтому регионы хранятся явным срезом, а не картой.
package rules

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// matchTimeout ограничивает время одного сопоставления пользовательского шаблона.
const matchTimeout = 100 * time.Millisecond

// Language — язык отображаемых имён регионов.
type Language int

const (
	EN Language = iota
	CN
)

// ParseLanguage разбирает значение параметра lang. Всё, кроме "CN", — EN.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), "CN") {
		return CN
	}
	return EN
}

func (l Language) String() string {
	if l == CN {
		return "CN"
	}
	return "EN"
}

// Names — локализованные отображаемые имена региона.
type Names struct {
	EN string `yaml:"en"`
	CN string `yaml:"cn"`
}

// For возвращает имя для языка l.
func (n Names) For(l Language) string {
	if l == CN {
		return n.CN
	}
	return n.EN
}

// RegionRule связывает набор ключевых слов (подстрок, без учёта регистра)
// с отображаемым именем региона. Pattern — необязательное сырое регулярное
// выражение, которое объединяется с Keywords через альтернативу.
type RegionRule struct {
	Code     string   `yaml:"code"`
	Keywords []string `yaml:"keywords,flow"`
	Pattern  string   `yaml:"pattern,omitempty"`
	Names    Names    `yaml:"names"`
}

// PreserveKeyword — слово, которое вырезается из имени, а его короткий тег
// дописывается в конец итогового имени.
type PreserveKeyword struct {
	Match string `yaml:"match"`
	Tag   string `yaml:"tag"`
}

// Set — декларативная (некомпилированная) форма таблиц.
type Set struct {
	Regions  []RegionRule      `yaml:"regions"`
	Filters  []string          `yaml:"filters"`
	Preserve []PreserveKeyword `yaml:"preserve"`
}

type compiledRegion struct {
	rule RegionRule
	re   *regexp2.Regexp
}

type compiledPreserve struct {
	kw PreserveKeyword
	re *regexp2.Regexp
}

// Table — скомпилированные таблицы. Безопасна для конкурентного чтения.
type Table struct {
	regions  []compiledRegion
	filters  []*regexp2.Regexp
	preserve []compiledPreserve
	byCode   map[string]int
}

// Compile компилирует набор правил. Шаблоны, которые не компилируются,
// пропускаются с предупреждением и не мешают остальным правилам.
func Compile(s Set, log logrus.FieldLogger) *Table {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Table{byCode: make(map[string]int, len(s.Regions))}

	for _, rule := range s.Regions {
		re, err := compile(regionPattern(rule))
		if err != nil {
			log.WithFields(logrus.Fields{"region": rule.Code, "error": err}).Warn("skipping malformed region rule")
			continue
		}
		if re == nil {
			continue
		}
		code := strings.ToUpper(rule.Code)
		if _, dup := t.byCode[code]; code != "" && !dup {
			t.byCode[code] = len(t.regions)
		}
		t.regions = append(t.regions, compiledRegion{rule: rule, re: re})
	}

	for _, kw := range lo.Uniq(s.Filters) {
		re, err := compile(kw)
		if err != nil {
			log.WithFields(logrus.Fields{"filter": kw, "error": err}).Warn("skipping malformed filter keyword")
			continue
		}
		if re != nil {
			t.filters = append(t.filters, re)
		}
	}

	for _, kw := range s.Preserve {
		re, err := compile(kw.Match)
		if err != nil {
			log.WithFields(logrus.Fields{"preserve": kw.Match, "error": err}).Warn("skipping malformed preserve keyword")
			continue
		}
		if re != nil {
			t.preserve = append(t.preserve, compiledPreserve{kw: kw, re: re})
		}
	}
	return t
}

func regionPattern(rule RegionRule) string {
	alts := make([]string, 0, len(rule.Keywords)+1)
	if p := strings.TrimSpace(rule.Pattern); p != "" {
		alts = append(alts, "(?:"+p+")")
	}
	for _, kw := range rule.Keywords {
		if kw != "" {
			alts = append(alts, regexp2.Escape(kw))
		}
	}
	return strings.Join(alts, "|")
}

// compile возвращает nil без ошибки для пустого шаблона.
func compile(pattern string) (*regexp2.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

// Filtered сообщает, содержит ли имя хотя бы одно стоп-слово.
func (t *Table) Filtered(name string) bool {
	for _, re := range t.filters {
		if matches(re, name) {
			return true
		}
	}
	return false
}

// ExtractPreserved вырезает все вхождения сохраняемых слов и возвращает
// остаток имени и теги в порядке таблицы.
func (t *Table) ExtractPreserved(name string) (string, []string) {
	var tags []string
	for _, p := range t.preserve {
		if !matches(p.re, name) {
			continue
		}
		stripped, err := p.re.Replace(name, "", -1, -1)
		if err != nil {
			continue
		}
		name = stripped
		tags = append(tags, p.kw.Tag)
	}
	return name, tags
}

// MatchRegion возвращает первое правило, чей шаблон встречается в имени.
func (t *Table) MatchRegion(name string) (RegionRule, bool) {
	for _, r := range t.regions {
		if matches(r.re, name) {
			return r.rule, true
		}
	}
	return RegionRule{}, false
}

// RegionByCode ищет правило по коду региона (US, HK, ...).
func (t *Table) RegionByCode(code string) (RegionRule, bool) {
	i, ok := t.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return RegionRule{}, false
	}
	return t.regions[i].rule, true
}

// Regions возвращает скомпилированные правила в порядке приоритета.
func (t *Table) Regions() []RegionRule {
	out := make([]RegionRule, len(t.regions))
	for i, r := range t.regions {
		out[i] = r.rule
	}
	return out
}
