package coerce

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Culture describes the numeric separators of a locale.
type Culture struct {
	Name    string
	Decimal rune
	Group   rune
}

// Invariant is the culture-neutral format: dot decimal, comma grouping.
var Invariant = Culture{Name: "invariant", Decimal: '.', Group: ','}

// Languages whose decimal separator is a comma, keyed by base language,
// with the group separator they use.
var commaDecimal = map[string]rune{
	"de": '.', "es": '.', "it": '.', "nl": '.', "pt": '.', "id": '.',
	"tr": '.', "da": '.', "el": '.', "ro": '.', "hr": '.', "sl": '.',
	"fr": ' ', "ru": ' ', "pl": ' ', "cs": ' ', "sk": ' ', "sv": ' ',
	"fi": ' ', "nb": ' ', "no": ' ', "uk": ' ', "hu": ' ', "bg": ' ',
}

// CultureFor returns the culture for a BCP-47 tag or POSIX locale name
// such as "de-DE" or "fr_FR.UTF-8". Unparseable names, "C" and "POSIX"
// yield Invariant.
func CultureFor(name string) Culture {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, ".@"); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "C" || name == "POSIX" {
		return Invariant
	}
	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return Invariant
	}
	base, _ := tag.Base()
	if group, ok := commaDecimal[base.String()]; ok {
		return Culture{Name: tag.String(), Decimal: ',', Group: group}
	}
	return Culture{Name: tag.String(), Decimal: '.', Group: ','}
}

// CurrentCulture derives the culture from LC_ALL, LC_NUMERIC or LANG, in
// that order of precedence.
func CurrentCulture() Culture {
	for _, env := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		if v := os.Getenv(env); v != "" {
			return CultureFor(v)
		}
	}
	return Invariant
}
