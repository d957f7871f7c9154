package bundle

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version identifica una versión concreta de un bundle.
type Version struct {
	ID       string `json:"id" yaml:"id"`
	Version  string `json:"version" yaml:"version"`
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// IsZero reporta si v no identifica nada.
func (v Version) IsZero() bool {
	return v.ID == "" && v.Version == "" && v.Checksum == ""
}

// Info formatea v como "id:version (checksum c)". Devuelve "" si id y versión están
// vacíos; omite el checksum si está vacío o coincide con la versión.
func Info(id, version, checksum string) string {
	id = strings.TrimSpace(id)
	version = strings.TrimSpace(version)
	checksum = strings.TrimSpace(checksum)
	if id == "" && version == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(id)
	if version != "" {
		if id != "" {
			sb.WriteByte(':')
		}
		sb.WriteString(version)
	}
	if checksum != "" && checksum != version {
		sb.WriteString(" (checksum ")
		sb.WriteString(checksum)
		sb.WriteByte(')')
	}
	return sb.String()
}

// Info formatea la versión (ver la función Info).
func (v Version) Info() string { return Info(v.ID, v.Version, v.Checksum) }

// Same reporta si v y o identifican el mismo contenido. Con checksums en ambos lados
// manda el checksum; si no, id y versión.
func (v Version) Same(o Version) bool {
	if v.Checksum != "" && o.Checksum != "" {
		return v.Checksum == o.Checksum
	}
	return v.ID == o.ID && v.Version == o.Version
}

// CompareVersions ordena dos strings de versión semver. ok es false si alguno no es
// semver, en cuyo caso no hay orden definido.
func CompareVersions(a, b string) (cmp int, ok bool) {
	va, err := semver.NewVersion(strings.TrimSpace(a))
	if err != nil {
		return 0, false
	}
	vb, err := semver.NewVersion(strings.TrimSpace(b))
	if err != nil {
		return 0, false
	}
	return va.Compare(vb), true
}

// Older reporta si v es estrictamente anterior a o según semver. Versiones no semver
// nunca se consideran anteriores.
func (v Version) Older(o Version) bool {
	cmp, ok := CompareVersions(v.Version, o.Version)
	return ok && cmp < 0
}
