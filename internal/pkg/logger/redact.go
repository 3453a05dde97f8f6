package logger

import "strings"

// RedactName masks a customer or company name for safe logging.
// "PT Maju Bersama" → "PT ***"
// Single-word names keep the first two characters: "Telkomsel" → "Te***"
func RedactName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	words := strings.Fields(name)
	if len(words) > 1 {
		return words[0] + " ***"
	}
	if len(name) > 2 {
		return name[:2] + "***"
	}
	return "***"
}
