package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Bundle es un directorio de bundle abierto.
type Bundle struct {
	path    string
	raw     []byte
	desc    *Descriptor
	descErr error

	sumOnce sync.Once
	sum     string
	sumErr  error
}

// Open abre el bundle en path en modo tolerante: si el descriptor falta o no parsea,
// el bundle queda sin descriptor (Files devuelve listas vacías) y no hay error.
// Devuelve *NotFoundError si path no existe.
func Open(path string) (*Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("stat bundle %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle %s is not a directory", path)
	}

	b := &Bundle{path: path}
	raw, err := os.ReadFile(filepath.Join(path, DescriptorFile))
	if err != nil {
		b.descErr = err
		return b, nil
	}
	b.raw = raw
	b.desc, b.descErr = ParseDescriptor(raw)
	return b, nil
}

// Load abre el bundle en modo estricto: el descriptor debe existir y parsear.
func Load(path string) (*Bundle, error) {
	b, err := Open(path)
	if err != nil {
		return nil, err
	}
	if b.descErr != nil {
		return nil, &ParseError{Path: filepath.Join(path, DescriptorFile), Err: b.descErr}
	}
	return b, nil
}

// Path devuelve la ruta del directorio.
func (b *Bundle) Path() string { return b.path }

// Descriptor devuelve el descriptor parseado, o nil.
func (b *Bundle) Descriptor() *Descriptor { return b.desc }

// DescriptorErr devuelve el motivo por el que no hay descriptor, o nil.
func (b *Bundle) DescriptorErr() error { return b.descErr }

// RawDescriptor devuelve el texto del descriptor tal cual está en disco.
func (b *Bundle) RawDescriptor() []byte { return b.raw }

// Files devuelve los archivos declarados para la sección.
func (b *Bundle) Files(s Section) []string {
	return b.desc.Files(s)
}

// AllFiles devuelve el descriptor y todos los archivos declarados, ordenados y sin repetir.
func (b *Bundle) AllFiles() []string {
	seen := map[string]struct{}{}
	out := []string{}
	if b.raw != nil {
		seen[DescriptorFile] = struct{}{}
		out = append(out, DescriptorFile)
	}
	for _, s := range DiffSections {
		for _, f := range b.Files(s) {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// FilePath resuelve un archivo declarado dentro del bundle. Rechaza rutas que escapan
// del directorio.
func (b *Bundle) FilePath(name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("file %q escapes bundle directory", name)
	}
	return filepath.Join(b.path, local), nil
}

// ReadFile lee un archivo declarado del bundle.
func (b *Bundle) ReadFile(name string) ([]byte, error) {
	p, err := b.FilePath(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Version devuelve la identidad del bundle (id, versión y checksum del contenido).
func (b *Bundle) Version() (Version, error) {
	sum, err := b.Checksum()
	if err != nil {
		return Version{}, err
	}
	v := Version{Checksum: sum}
	if b.desc != nil {
		v.ID = b.desc.ID
		v.Version = b.desc.Version
	}
	return v, nil
}

// Checksum calcula (una vez) el digest del contenido del bundle.
func (b *Bundle) Checksum() (string, error) {
	b.sumOnce.Do(func() {
		b.sum, b.sumErr = checksum(b)
	})
	return b.sum, b.sumErr
}
