package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// File — формат пользовательского файла правил (rules.yaml).
// Непустые regions/filters/preserve заменяют встроенные списки целиком,
// extra_regions ставятся перед регионами (выше приоритет), extra_filters
// дописываются к стоп-словам.
type File struct {
	Set          `yaml:",inline"`
	ExtraRegions []RegionRule `yaml:"extra_regions,omitempty"`
	ExtraFilters []string     `yaml:"extra_filters,omitempty"`
}

// LoadFile читает файл правил и накладывает его на встроенные таблицы.
// Пустой путь означает встроенные таблицы без изменений.
func LoadFile(path string) (Set, error) {
	base := DefaultSet()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Set{}, fmt.Errorf("failed to unmarshal rules YAML: %w", err)
	}
	return Merge(base, f), nil
}

// Merge накладывает f на base.
func Merge(base Set, f File) Set {
	out := base
	if len(f.Regions) > 0 {
		out.Regions = f.Regions
	}
	if len(f.Filters) > 0 {
		out.Filters = f.Filters
	}
	if len(f.Preserve) > 0 {
		out.Preserve = f.Preserve
	}
	if len(f.ExtraRegions) > 0 {
		out.Regions = append(append([]RegionRule(nil), f.ExtraRegions...), out.Regions...)
	}
	if len(f.ExtraFilters) > 0 {
		out.Filters = lo.UniqBy(append(append([]string(nil), out.Filters...), f.ExtraFilters...), strings.ToLower)
	}
	return out
}

// Export сохраняет набор правил в YAML-файл, пригодный для LoadFile.
// Используется командой `regions --export` для получения редактируемой копии.
func Export(s Set, path string) error {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
