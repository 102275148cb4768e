// Package i18n holds the bot's supported languages and message catalog.
package i18n

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
)

// Lang is a supported interface language, stored as its base subtag ("ru", "en").
type Lang string

const (
	RU Lang = "ru"
	EN Lang = "en"
)

// Default is used for users without a stored preference.
var Default = RU

var supported = []language.Tag{language.Russian, language.English}

var matcher = language.NewMatcher(supported)

// Supported lists the languages offered in the language picker, in display order.
func Supported() []Lang {
	return []Lang{RU, EN}
}

// Parse maps any BCP 47 tag ("en-US", "ru", "uk") onto a supported language.
// The second result is false when s is not a valid tag or nothing matched
// with at least high confidence.
func Parse(s string) (Lang, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Default, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return Default, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return Default, false
	}
	base, _ := supported[idx].Base()
	return Lang(base.String()), true
}

// Valid reports whether l is one of the supported languages.
func (l Lang) Valid() bool {
	return l == RU || l == EN
}

// OrDefault returns l, or Default when l is not supported.
func (l Lang) OrDefault() Lang {
	if l.Valid() {
		return l
	}
	return Default
}

// Scan implements the sql.Scanner interface.
func (l *Lang) Scan(value any) error {
	if value == nil {
		*l = Default
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("i18n.Lang.Scan: expected string, got %T", value)
	}

	*l, _ = Parse(s)
	return nil
}

// Value implements the driver.Valuer interface.
func (l Lang) Value() (driver.Value, error) {
	return string(l.OrDefault()), nil
}

// ScanText implements the pgtype.TextScanner interface for pgx v5.
func (l *Lang) ScanText(v pgtype.Text) error {
	if !v.Valid {
		*l = Default
		return nil
	}
	*l, _ = Parse(v.String)
	return nil
}

// TextValue implements the pgtype.TextValuer interface for pgx v5.
func (l Lang) TextValue() (pgtype.Text, error) {
	return pgtype.Text{String: string(l.OrDefault()), Valid: true}, nil
}
