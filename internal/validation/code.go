package validation

import "regexp"

// Reglas de códigos de validación:
// - Mayúsculas, dígitos, '_', '-' y '.'.
// - Empiezan con una letra.
// - Largo 1..64.
//
// Válidos: DESCRIPTOR, YAML, PLUGIN_CATALOG. Inválidos: rbac, 1ST, "".
var codeRe = regexp.MustCompile(`^[A-Z][A-Z0-9_.\-]{0,63}$`)

// ValidCode reporta si code respeta el formato de códigos de validación.
func ValidCode(code string) bool {
	return codeRe.MatchString(code)
}

// Códigos emitidos por los validadores por defecto.
const (
	CodeDescriptor = "DESCRIPTOR"
	CodeFiles      = "FILES"
	CodeYAML       = "YAML"
	CodeCatalog    = "CATALOG"
	CodeInternal   = "INTERNAL"
)
