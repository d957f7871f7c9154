package bundle

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DescriptorFile es el nombre del descriptor dentro del directorio del bundle.
const DescriptorFile = "bundle.yaml"

// Descriptor es el contenido de bundle.yaml.
type Descriptor struct {
	APIVersion  string   `yaml:"apiVersion"`
	ID          string   `yaml:"id"`
	Description string   `yaml:"description,omitempty"`
	Version     string   `yaml:"version"`
	JCasC       []string `yaml:"jcasc,omitempty"`
	Items       []string `yaml:"items,omitempty"`
	RBAC        []string `yaml:"rbac,omitempty"`
	Catalog     []string `yaml:"catalog,omitempty"`
	Plugins     []string `yaml:"plugins,omitempty"`
	Variables   []string `yaml:"variables,omitempty"`
}

// ParseDescriptor decodifica el YAML de un descriptor. Solo falla si el YAML no
// decodifica o el documento está vacío; un id o versión ausente lo reporta el
// validador de descriptor, y las listas de secciones se conservan.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.empty() {
		return nil, fmt.Errorf("descriptor is empty")
	}
	return &d, nil
}

func (d *Descriptor) empty() bool {
	return strings.TrimSpace(d.APIVersion) == "" && strings.TrimSpace(d.ID) == "" &&
		strings.TrimSpace(d.Version) == "" && d.Description == "" &&
		len(d.JCasC)+len(d.Items)+len(d.RBAC)+len(d.Catalog)+len(d.Plugins)+len(d.Variables) == 0
}

// Files devuelve los archivos declarados para una sección, normalizados (slash,
// sin duplicados, en el orden declarado).
func (d *Descriptor) Files(s Section) []string {
	if d == nil {
		return nil
	}
	var raw []string
	switch s {
	case SectionJCasC:
		raw = d.JCasC
	case SectionItems:
		raw = d.Items
	case SectionRBAC:
		raw = d.RBAC
	case SectionCatalog:
		raw = d.Catalog
	case SectionPlugins:
		raw = d.Plugins
	case SectionVariables:
		raw = d.Variables
	case SectionDescriptor:
		return []string{DescriptorFile}
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		f = filepath.ToSlash(filepath.Clean(f))
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
