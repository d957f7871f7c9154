// Package atomicwrite escribe archivos del update log y de bundles promovidos sin dejar
// archivos a medio escribir: todo pasa por un temporal en el mismo directorio y un rename.
package atomicwrite

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// write crea path con lo que produzca fill. Si fill falla el destino no se toca.
func write(path string, perm fs.FileMode, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		// Windows no reemplaza un destino existente.
		_ = os.Remove(path)
		if err2 := os.Rename(tmp.Name(), path); err2 != nil {
			return fmt.Errorf("rename %s: %v (after remove: %w)", filepath.Base(path), err, err2)
		}
	}
	return nil
}

// WriteFile escribe data en path atómicamente.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	return write(path, perm, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}

// WriteYAML serializa v como YAML directo al temporal.
func WriteYAML(path string, v any, perm fs.FileMode) error {
	return write(path, perm, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
		}
		return enc.Close()
	})
}

// CopyFile copia src a dst atómicamente, creando los directorios de dst.
func CopyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return write(dst, perm, func(w io.Writer) error {
		if _, err := io.Copy(w, in); err != nil {
			return fmt.Errorf("copy %s: %w", src, err)
		}
		return nil
	})
}
