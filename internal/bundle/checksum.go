package bundle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/opencontainers/go-digest"
)

// checksum es el digest canónico (sha256) de los archivos del bundle en orden: para cada
// archivo se escribe su ruta relativa, un separador y su contenido. Los archivos
// declarados que no existen aportan solo su ruta.
func checksum(b *Bundle) (string, error) {
	d := digest.Canonical.Digester()
	h := d.Hash()
	for _, name := range b.AllFiles() {
		_, _ = io.WriteString(h, name)
		_, _ = h.Write([]byte{0})
		p, err := b.FilePath(name)
		if err != nil {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("checksum %s: %w", name, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("checksum %s: %w", name, err)
		}
		_, _ = h.Write([]byte{0})
	}
	return d.Digest().Encoded(), nil
}
