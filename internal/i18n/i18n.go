// Package i18n holds the localized string tables for user-facing
// replies. Tables are YAML files embedded at build time, one per
// language.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Bundle resolves message keys to localized strings.
type Bundle struct {
	defaultLang string
	tables      map[string]map[string]string
}

// Load parses all embedded locale tables. defaultLang is used when a
// requested language has no table; it must itself have one.
func Load(defaultLang string) (*Bundle, error) {
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	tables := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		lang := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", lang, err)
		}
		tables[lang] = table
	}

	if _, ok := tables[defaultLang]; !ok {
		return nil, fmt.Errorf("no locale table for default language %q", defaultLang)
	}

	return &Bundle{defaultLang: defaultLang, tables: tables}, nil
}

// Supported reports whether a locale table exists for lang.
func (b *Bundle) Supported(lang string) bool {
	_, ok := b.tables[lang]
	return ok
}

// Languages lists the languages with a locale table, sorted.
func (b *Bundle) Languages() []string {
	langs := make([]string, 0, len(b.tables))
	for lang := range b.tables {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// StringFor returns the localized string for key, substituting {name}
// placeholders from params. Unknown languages fall back to the default
// table; an unknown key is returned verbatim so it shows up in chat
// instead of vanishing.
func (b *Bundle) StringFor(lang, key string, params map[string]string) string {
	table, ok := b.tables[lang]
	if !ok {
		table = b.tables[b.defaultLang]
	}

	s, ok := table[key]
	if !ok {
		if s, ok = b.tables[b.defaultLang][key]; !ok {
			return key
		}
	}

	for name, value := range params {
		s = strings.ReplaceAll(s, "{"+name+"}", value)
	}
	return s
}
