// Package bundletest escribe bundles de prueba en disco.
package bundletest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
)

// Spec describe un bundle a escribir. Files es sección -> archivo -> contenido.
type Spec struct {
	ID      string
	Version string
	Files   map[bundle.Section]map[string]string
	// Descriptor reemplaza el bundle.yaml generado cuando no es vacío.
	Descriptor string
	// NoDescriptor omite bundle.yaml.
	NoDescriptor bool
}

// Write crea el bundle en dir (que se crea si no existe) y devuelve dir.
func Write(t testing.TB, dir string, s Spec) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	d := bundle.Descriptor{APIVersion: "1", ID: s.ID, Version: s.Version}
	for sec, files := range s.Files {
		names := make([]string, 0, len(files))
		for name, content := range files {
			names = append(names, name)
			p := filepath.Join(dir, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
				t.Fatalf("write %s: %v", p, err)
			}
		}
		sort.Strings(names)
		switch sec {
		case bundle.SectionJCasC:
			d.JCasC = names
		case bundle.SectionItems:
			d.Items = names
		case bundle.SectionRBAC:
			d.RBAC = names
		case bundle.SectionCatalog:
			d.Catalog = names
		case bundle.SectionPlugins:
			d.Plugins = names
		case bundle.SectionVariables:
			d.Variables = names
		}
	}

	if s.NoDescriptor {
		return dir
	}
	raw := []byte(s.Descriptor)
	if s.Descriptor == "" {
		var err error
		raw, err = yaml.Marshal(d)
		if err != nil {
			t.Fatalf("marshal descriptor: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, bundle.DescriptorFile), raw, 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return dir
}

// Simple es un bundle con un archivo jcasc y uno de plugins.
func Simple(id, version string) Spec {
	return Spec{
		ID:      id,
		Version: version,
		Files: map[bundle.Section]map[string]string{
			bundle.SectionJCasC:   {"jenkins.yaml": "jenkins:\n  systemMessage: " + version + "\n"},
			bundle.SectionPlugins: {"plugins.yaml": "plugins:\n  - id: git\n"},
		},
	}
}
