package env

import "strings"

// Keywords is a comma separated list of chat keywords parsed from an
// environment variable such as SNAPNGO_HELP_KEYWORDS. Entries are
// trimmed and lowercased, and empty entries are dropped.
type Keywords []string

// Decode implements envconfig.Decoder.
func (k *Keywords) Decode(value string) error {
	var out Keywords
	for _, entry := range strings.Split(value, ",") {
		if entry = normalize(entry); entry != "" {
			out = append(out, entry)
		}
	}
	*k = out
	return nil
}

// Contains reports whether text matches one of the keywords.
func (k Keywords) Contains(text string) bool {
	text = normalize(text)
	for _, kw := range k {
		if kw == text {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
