package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// supported lists the locales notification messages are translated into.
// The first entry is the final fallback.
var supported = []language.Tag{
	language.English,
	language.German,
	language.Spanish,
	language.French,
	language.Portuguese,
	language.Arabic,
}

var matcher = language.NewMatcher(supported)

// Match resolves a stored language preference to the closest supported
// locale. preferred is tried first, then fallback (usually the platform
// default); unparseable or unsupported values are skipped. English is the
// last resort.
func Match(preferred, fallback string) language.Tag {
	for _, raw := range []string{preferred, fallback} {
		if raw == "" {
			continue
		}
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		if _, idx, conf := matcher.Match(tag); conf > language.No {
			return supported[idx]
		}
	}
	return supported[0]
}

// Printer returns a message printer rendering in the given locale.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Supported returns the locales messages are available in.
func Supported() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}
