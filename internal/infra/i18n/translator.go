package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

var _ adapter.Translator = (*Translator)(nil)

// Translator holds one flat key/format table per language.
type Translator struct {
	translations map[model.Language]map[string]string
	fallback     model.Language
}

// NewTranslator loads locales/<lang>.yaml from fsys for every language.
// The first language is the fallback for keys missing elsewhere.
func NewTranslator(fsys fs.FS, langs ...model.Language) (*Translator, error) {
	if len(langs) == 0 {
		langs = model.SupportedLanguages
	}
	t := &Translator{
		translations: make(map[model.Language]map[string]string, len(langs)),
		fallback:     langs[0],
	}
	for _, lang := range langs {
		filePath := path.Join("locales", fmt.Sprintf("%s.yaml", lang))
		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
		}
		if err := t.add(lang, data); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NewDefaultTranslator loads the embedded en and ar locales.
func NewDefaultTranslator() (*Translator, error) {
	return NewTranslator(LocalesFS, model.SupportedLanguages...)
}

func newTranslatorFromBytes(lang model.Language, data []byte) (*Translator, error) {
	t := &Translator{translations: map[model.Language]map[string]string{}, fallback: lang}
	if err := t.add(lang, data); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Translator) add(lang model.Language, data []byte) error {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to parse translation file for %s: %w", lang, err)
	}
	t.translations[lang] = translations
	return nil
}

// T renders key in lang, falling back to the default language and finally to
// the key itself.
func (t *Translator) T(lang model.Language, key string, args ...interface{}) string {
	format, ok := t.translations[lang][key]
	if !ok {
		format, ok = t.translations[t.fallback][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Has reports whether lang defines key.
func (t *Translator) Has(lang model.Language, key string) bool {
	_, ok := t.translations[lang][key]
	return ok
}
