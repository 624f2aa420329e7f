// Package locale holds the translated strings shown by the terminal clients
// and the on-call alerts.
package locale

import (
	"embed"
	"encoding/json"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed i18n/*.json
var messageFiles embed.FS

// LoadBundle parses every embedded message file
func LoadBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	entries, err := messageFiles.ReadDir("i18n")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name := path.Join("i18n", entry.Name())
		buf, err := messageFiles.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, name); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

// Localizer translates message ids for one language, falling back to English
type Localizer struct {
	localizer *i18n.Localizer
}

// NewLocalizer loads the bundle for lang. An empty lang means English.
func NewLocalizer(lang string) (*Localizer, error) {
	bundle, err := LoadBundle()
	if err != nil {
		return nil, err
	}
	if lang != "" {
		return &Localizer{localizer: i18n.NewLocalizer(bundle, lang, "en")}, nil
	}
	return &Localizer{localizer: i18n.NewLocalizer(bundle, "en")}, nil
}

// T translates id. Unknown ids are returned unchanged.
func (l *Localizer) T(id string) string {
	return l.Format(id, nil)
}

// Format translates id, filling its template from data
func (l *Localizer) Format(id string, data map[string]interface{}) string {
	if l == nil {
		return id
	}
	text, err := l.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil || text == "" {
		return id
	}
	return text
}
