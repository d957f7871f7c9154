// Package compare calcula diferencias archivo a archivo entre dos bundles.
package compare

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
)

// SectionDiff son las diferencias de una sección entre origin y other.
// Los tres conjuntos son disjuntos.
type SectionDiff struct {
	NewFiles     []string `json:"new"`
	DeletedFiles []string `json:"deleted"`
	UpdatedFiles []string `json:"updated"`
}

// WithChanges reporta si la sección tiene alguna diferencia.
func (d SectionDiff) WithChanges() bool {
	return len(d.NewFiles) > 0 || len(d.DeletedFiles) > 0 || len(d.UpdatedFiles) > 0
}

// Result es el resultado inmutable de comparar dos bundles.
type Result struct {
	origin      *bundle.Bundle
	other       *bundle.Bundle
	sections    map[bundle.Section]SectionDiff
	sameBundles bool
}

// Compare compara los bundles en originPath y otherPath. Ambos paths deben existir.
func Compare(originPath, otherPath string) (*Result, error) {
	origin, err := bundle.Open(originPath)
	if err != nil {
		return nil, fmt.Errorf("compare origin: %w", err)
	}
	other, err := bundle.Open(otherPath)
	if err != nil {
		return nil, fmt.Errorf("compare other: %w", err)
	}
	return CompareBundles(origin, other), nil
}

// CompareBundles compara dos bundles ya abiertos.
func CompareBundles(origin, other *bundle.Bundle) *Result {
	r := &Result{
		origin:   origin,
		other:    other,
		sections: make(map[bundle.Section]SectionDiff, len(bundle.DiffSections)),
	}
	for _, s := range bundle.DiffSections {
		r.sections[s] = diffSection(s, origin, other)
	}
	r.sameBundles = r.computeSame()
	return r
}

func diffSection(s bundle.Section, origin, other *bundle.Bundle) SectionDiff {
	a := origin.Files(s)
	b := other.Files(s)
	inA := toSet(a)
	inB := toSet(b)

	d := SectionDiff{NewFiles: []string{}, DeletedFiles: []string{}, UpdatedFiles: []string{}}
	for _, f := range b {
		if _, ok := inA[f]; !ok {
			d.NewFiles = append(d.NewFiles, f)
		}
	}
	for _, f := range a {
		if _, ok := inB[f]; !ok {
			d.DeletedFiles = append(d.DeletedFiles, f)
			continue
		}
		ca, errA := origin.ReadFile(f)
		cb, errB := other.ReadFile(f)
		if errA != nil || errB != nil {
			// contenido ilegible en algún lado: no se compara
			continue
		}
		if !bytes.Equal(ca, cb) {
			d.UpdatedFiles = append(d.UpdatedFiles, f)
		}
	}
	return d
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

// computeSame: misma ubicación física, o descriptor textualmente idéntico y ninguna
// sección con cambios. Un descriptor que solo difiere en comentarios o espacios
// cuenta como distinto.
func (r *Result) computeSame() bool {
	if samePath(r.origin.Path(), r.other.Path()) {
		return true
	}
	if !bytes.Equal(r.origin.RawDescriptor(), r.other.RawDescriptor()) {
		return false
	}
	for _, d := range r.sections {
		if d.WithChanges() {
			return false
		}
	}
	return true
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// Origin devuelve el bundle de referencia.
func (r *Result) Origin() *bundle.Bundle { return r.origin }

// Other devuelve el bundle comparado contra origin.
func (r *Result) Other() *bundle.Bundle { return r.other }

// SameBundles reporta si ambos bundles son iguales.
func (r *Result) SameBundles() bool { return r.sameBundles }

// Section devuelve el diff de una sección. Secciones desconocidas devuelven un diff vacío.
func (r *Result) Section(s bundle.Section) SectionDiff { return r.sections[s] }

// WithChanges reporta si alguna sección tiene cambios.
func (r *Result) WithChanges() bool {
	for _, d := range r.sections {
		if d.WithChanges() {
			return true
		}
	}
	return false
}

// OnlySections reporta si todos los cambios caen dentro de las secciones dadas.
func (r *Result) OnlySections(allowed ...bundle.Section) bool {
	for s, d := range r.sections {
		if d.WithChanges() && !slices.Contains(allowed, s) {
			return false
		}
	}
	return true
}

// Summary es la forma serializable de un Result, para la API y el CLI.
type Summary struct {
	Origin      string                 `json:"origin"`
	Other       string                 `json:"other"`
	SameBundles bool                   `json:"sameBundles"`
	Sections    map[string]SectionDiff `json:"sections"`
}

// Summary arma la vista serializable del resultado.
func (r *Result) Summary() Summary {
	s := Summary{
		Origin:      r.origin.Path(),
		Other:       r.other.Path(),
		SameBundles: r.sameBundles,
		Sections:    make(map[string]SectionDiff, len(r.sections)),
	}
	for sec, d := range r.sections {
		s.Sections[string(sec)] = d
	}
	return s
}

// IsNotFound reporta si err proviene de un path de bundle inexistente.
func IsNotFound(err error) bool {
	var nf *bundle.NotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}
