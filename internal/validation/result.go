// Package validation define los resultados de validación de un bundle y un pipeline de
// validadores estructurales por defecto.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Level es la severidad de un resultado.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

func (l Level) severity() int {
	switch l {
	case LevelError:
		return 2
	case LevelWarning:
		return 1
	default:
		return 0
	}
}

// ParseLevel acepta el nombre de un nivel sin importar mayúsculas.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelInfo:
		return LevelInfo, nil
	case LevelWarning, "WARN":
		return LevelWarning, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown validation level %q", s)
}

// Result es un mensaje de validación. Es un valor: dos resultados son iguales si
// coinciden nivel, código y mensaje.
type Result struct {
	Level   Level  `json:"level" yaml:"level"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

func Info(code, format string, args ...any) Result {
	return Result{Level: LevelInfo, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Warning(code, format string, args ...any) Result {
	return Result{Level: LevelWarning, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Error(code, format string, args ...any) Result {
	return Result{Level: LevelError, Code: code, Message: fmt.Sprintf(format, args...)}
}

// String devuelve "LEVEL - [CODE] - message".
func (r Result) String() string {
	return fmt.Sprintf("%s - [%s] - %s", r.Level, r.Code, r.Message)
}

// Parse es la inversa de String.
func Parse(s string) (Result, error) {
	parts := strings.SplitN(s, " - ", 3)
	if len(parts) != 3 {
		return Result{}, fmt.Errorf("malformed validation %q", s)
	}
	lvl, err := ParseLevel(parts[0])
	if err != nil {
		return Result{}, err
	}
	code := parts[1]
	if !strings.HasPrefix(code, "[") || !strings.HasSuffix(code, "]") {
		return Result{}, fmt.Errorf("malformed validation code in %q", s)
	}
	code = code[1 : len(code)-1]
	if !ValidCode(code) {
		return Result{}, fmt.Errorf("invalid validation code %q", code)
	}
	return Result{Level: lvl, Code: code, Message: parts[2]}, nil
}

// ShouldBeRejected reporta si el conjunto invalida el bundle: cualquier ERROR, o
// cualquier WARNING cuando rejectWarnings está activo.
func ShouldBeRejected(rs []Result, rejectWarnings bool) bool {
	for _, r := range rs {
		if r.Level == LevelError {
			return true
		}
		if rejectWarnings && r.Level == LevelWarning {
			return true
		}
	}
	return false
}

// HasErrors reporta si hay algún resultado de nivel ERROR.
func HasErrors(rs []Result) bool { return ShouldBeRejected(rs, false) }

// Messages formatea los resultados ordenados por severidad (errores, warnings, info).
// En modo quiet se omiten los INFO.
func Messages(rs []Result, quiet bool) []string {
	sorted := make([]Result, 0, len(rs))
	for _, r := range rs {
		if quiet && r.Level == LevelInfo {
			continue
		}
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Level.severity() > sorted[j].Level.severity()
	})
	out := make([]string, len(sorted))
	for i, r := range sorted {
		out[i] = r.String()
	}
	return out
}
