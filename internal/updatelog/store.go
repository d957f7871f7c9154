// Package updatelog guarda el historial de bundles candidatos: una carpeta por
// candidato, con nombre "YYYYMMDD_NNNNN" (fecha + secuencia global), que contiene una
// copia del bundle, sus validaciones y su metadata. Las carpetas se ordenan por
// (fecha, secuencia) numéricamente, no por nombre.
package updatelog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
	"github.com/dropDatabas3/bundlekeeper/internal/util/atomicwrite"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

const (
	BundleDir       = "bundle"
	ValidationsFile = "validations.yaml"
	CandidateFile   = "candidate.yaml"

	StatusEnabled  = "ENABLED"
	StatusDisabled = "DISABLED"
)

var folderRe = regexp.MustCompile(`^(\d{8})_(\d{5,})$`)

// ErrNoCandidate indica que no hay candidato registrado.
var ErrNoCandidate = errors.New("updatelog: no candidate bundle")

// Candidate es un bundle descargado y aún no aplicado.
type Candidate struct {
	Version     bundle.Version      `yaml:"version" json:"version"`
	Folder      string              `yaml:"-" json:"folder"`
	CreatedAt   time.Time           `yaml:"createdAt" json:"createdAt"`
	Skipped     bool                `yaml:"skipped" json:"skipped"`
	Invalid     bool                `yaml:"invalid" json:"invalid"`
	Promoted    bool                `yaml:"promoted" json:"promoted"`
	Validations []validation.Result `yaml:"-" json:"validations"`
}

type validationsDoc struct {
	Validations []string `yaml:"validations"`
}

// Store es el update log en disco.
type Store struct {
	root      string
	retention int
	log       *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

// Open crea (si hace falta) el directorio raíz. retention es la cantidad de carpetas
// a conservar; 0 deshabilita el historial y solo se conserva el candidato vigente.
func Open(root string, retention int, log *zap.Logger) (*Store, error) {
	if retention < 0 {
		return nil, fmt.Errorf("updatelog: negative retention %d", retention)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("updatelog: mkdir %s: %w", root, err)
	}
	return &Store{root: root, retention: retention, log: logger.OrDefault(log, "updatelog"), now: time.Now}, nil
}

// Root devuelve el directorio raíz.
func (s *Store) Root() string { return s.root }

// Retention devuelve la política de retención.
func (s *Store) Retention() int { return s.retention }

// Status devuelve ENABLED o DISABLED.
func (s *Store) Status() string {
	if s.retention > 0 {
		return StatusEnabled
	}
	return StatusDisabled
}

// BundlePath devuelve la ruta de la copia del bundle de un candidato.
func (s *Store) BundlePath(folder string) string {
	return filepath.Join(s.root, folder, BundleDir)
}

// Record copia el bundle en una carpeta nueva con sus validaciones y aplica la
// retención.
func (s *Store) Record(b *bundle.Bundle, results []validation.Result, invalid bool) (*Candidate, error) {
	v, err := b.Version()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.foldersLocked()
	if err != nil {
		return nil, err
	}
	now := s.now()
	folder := nextFolder(now, folders)
	dir := filepath.Join(s.root, folder)

	for _, name := range b.AllFiles() {
		src, err := b.FilePath(name)
		if err != nil {
			continue
		}
		dst := filepath.Join(dir, BundleDir, filepath.FromSlash(name))
		if err := atomicwrite.CopyFile(src, dst, 0o644); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("updatelog: copy %s: %w", name, err)
		}
	}

	c := &Candidate{Version: v, Folder: folder, CreatedAt: now, Invalid: invalid, Validations: results}
	if err := s.writeLocked(c); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	s.pruneLocked(append(folders, folder), folder)
	s.log.Info("candidate recorded", logger.Folder(folder), logger.BundleVersion(v.Version),
		logger.Bool("invalid", invalid))
	return c, nil
}

func (s *Store) writeLocked(c *Candidate) error {
	dir := filepath.Join(s.root, c.Folder)
	doc := validationsDoc{Validations: make([]string, len(c.Validations))}
	for i, r := range c.Validations {
		doc.Validations[i] = r.String()
	}
	if err := atomicwrite.WriteYAML(filepath.Join(dir, ValidationsFile), doc, 0o644); err != nil {
		return fmt.Errorf("updatelog: write validations: %w", err)
	}
	if err := atomicwrite.WriteYAML(filepath.Join(dir, CandidateFile), c, 0o644); err != nil {
		return fmt.Errorf("updatelog: write candidate: %w", err)
	}
	return nil
}

// nextFolder devuelve una carpeta que ordena después de todas las existentes: la
// fecha nunca retrocede respecto de la última carpeta (reloj atrasado) y la secuencia
// es la global más alta + 1.
func nextFolder(now time.Time, existing []string) string {
	day := now.Format("20060102")
	seq := 0
	for _, f := range existing {
		d, n, ok := parseFolder(f)
		if !ok {
			continue
		}
		if d > day {
			day = d
		}
		if n > seq {
			seq = n
		}
	}
	return fmt.Sprintf("%s_%05d", day, seq+1)
}

func parseFolder(name string) (day string, seq int, ok bool) {
	m := folderRe.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// sortFolders ordena por fecha y luego por secuencia numérica; "20220509_100000"
// va después de "20220509_99999".
func sortFolders(folders []string) {
	sort.SliceStable(folders, func(i, j int) bool {
		di, ni, _ := parseFolder(folders[i])
		dj, nj, _ := parseFolder(folders[j])
		if di != dj {
			return di < dj
		}
		return ni < nj
	})
}

// foldersLocked lista las carpetas de candidatos en orden ascendente.
func (s *Store) foldersLocked() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("updatelog: read %s: %w", s.root, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && folderRe.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sortFolders(out)
	return out, nil
}

// pruneLocked conserva las keep carpetas más recientes. current (la recién creada)
// nunca se borra.
func (s *Store) pruneLocked(folders []string, current string) {
	keep := s.retention
	if keep == 0 {
		keep = 1
	}
	sortFolders(folders)
	if len(folders) <= keep {
		return
	}
	for _, f := range folders[:len(folders)-keep] {
		if f == current {
			s.log.Warn("update log folder out of order, keeping it", logger.Folder(f))
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, f)); err != nil {
			s.log.Warn("cannot prune update log folder", logger.Folder(f), logger.Err(err))
			continue
		}
		s.log.Debug("update log folder pruned", logger.Folder(f))
	}
}

func (s *Store) readLocked(folder string) (*Candidate, error) {
	dir := filepath.Join(s.root, folder)
	raw, err := os.ReadFile(filepath.Join(dir, CandidateFile))
	if err != nil {
		return nil, fmt.Errorf("updatelog: read %s: %w", folder, err)
	}
	var c Candidate
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("updatelog: parse %s: %w", folder, err)
	}
	c.Folder = folder

	if raw, err := os.ReadFile(filepath.Join(dir, ValidationsFile)); err == nil {
		var doc validationsDoc
		if err := yaml.Unmarshal(raw, &doc); err == nil {
			for _, line := range doc.Validations {
				r, err := validation.Parse(line)
				if err != nil {
					s.log.Debug("skipping malformed validation line", logger.Folder(folder), logger.Err(err))
					continue
				}
				c.Validations = append(c.Validations, r)
			}
		}
	}
	return &c, nil
}

// Latest devuelve el candidato más reciente, o ErrNoCandidate.
func (s *Store) Latest() (*Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folders, err := s.foldersLocked()
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, ErrNoCandidate
	}
	return s.readLocked(folders[len(folders)-1])
}

// List devuelve los candidatos conservados, del más reciente al más antiguo.
// Carpetas ilegibles se omiten.
func (s *Store) List() ([]Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folders, err := s.foldersLocked()
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(folders))
	for i := len(folders) - 1; i >= 0; i-- {
		c, err := s.readLocked(folders[i])
		if err != nil {
			s.log.Warn("unreadable update log entry", logger.Folder(folders[i]), logger.Err(err))
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

// Update aplica fn a la metadata de un candidato y la persiste.
func (s *Store) Update(folder string, fn func(c *Candidate)) (*Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.readLocked(folder)
	if err != nil {
		return nil, err
	}
	fn(c)
	if err := s.writeLocked(c); err != nil {
		return nil, err
	}
	return c, nil
}

// MarkSkipped marca un candidato como omitido por el operador.
func (s *Store) MarkSkipped(folder string) (*Candidate, error) {
	return s.Update(folder, func(c *Candidate) { c.Skipped = true })
}

// MarkPromoted marca un candidato como aplicado.
func (s *Store) MarkPromoted(folder string) (*Candidate, error) {
	return s.Update(folder, func(c *Candidate) { c.Promoted = true })
}
