package util

import "strings"

// MaskSecret oculta un secreto para logs: conserva los dos primeros caracteres
// si es largo, el resto se reemplaza. Vacío queda vacío.
func MaskSecret(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case len(s) <= 6:
		return "***"
	default:
		return s[:2] + strings.Repeat("*", 6)
	}
}
