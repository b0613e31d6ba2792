package store

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sjsage522/opinionworker/internal/opinion"
	"sjsage522/opinionworker/internal/product"
	"sjsage522/opinionworker/internal/stats"
	"sjsage522/opinionworker/pkg/errors"
)

const (
	productsDir = "products"
	opinionsDir = "opinions"
)

// metadata is the on-disk shape of products/<id>.json
type metadata struct {
	ID    string        `json:"product_id"`
	Name  string        `json:"product_name"`
	Stats stats.Summary `json:"stats"`
}

// FileStore keeps one metadata document and one opinions array per product
type FileStore struct {
	root string
}

// NewFileStore creates the directory layout under root
func NewFileStore(root string) (*FileStore, error) {
	for _, dir := range []string{productsDir, opinionsDir} {
		path := filepath.Join(root, dir)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, errors.NewStorage(path, "cannot create directory", err)
		}
	}
	return &FileStore{root: root}, nil
}

// Save writes the opinions array first, then the metadata document
func (s *FileStore) Save(p *product.Product) error {
	opinions := p.Opinions
	if opinions == nil {
		opinions = []opinion.Record{}
	}
	if err := s.writeJSON(s.opinionsPath(p.ID), opinions); err != nil {
		return err
	}
	return s.writeJSON(s.productPath(p.ID), metadata{ID: p.ID, Name: p.Name, Stats: p.Stats})
}

// Load reconstructs a stored product
func (s *FileStore) Load(id string) (*product.Product, error) {
	var meta metadata
	if err := s.readJSON(s.productPath(id), &meta); err != nil {
		return nil, err
	}
	var opinions []opinion.Record
	if err := s.readJSON(s.opinionsPath(id), &opinions); err != nil {
		return nil, err
	}
	return &product.Product{
		ID:       meta.ID,
		Name:     meta.Name,
		Opinions: opinions,
		Stats:    meta.Stats,
	}, nil
}

// LoadMeta returns a stored product without its opinions
func (s *FileStore) LoadMeta(id string) (*product.Product, error) {
	var meta metadata
	if err := s.readJSON(s.productPath(id), &meta); err != nil {
		return nil, err
	}
	return &product.Product{ID: meta.ID, Name: meta.Name, Stats: meta.Stats}, nil
}

// List returns the ids of every stored product, sorted
func (s *FileStore) List() ([]string, error) {
	dir := filepath.Join(s.root, productsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewStorage(dir, "cannot list products", err)
	}
	ids := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether a product has been stored
func (s *FileStore) Exists(id string) bool {
	_, err := os.Stat(s.productPath(id))
	return err == nil
}

// IsNotFound reports whether err means the product is not stored
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrorTypeStorage) && stderrors.Is(err, fs.ErrNotExist)
}

func (s *FileStore) productPath(id string) string {
	return filepath.Join(s.root, productsDir, id+".json")
}

func (s *FileStore) opinionsPath(id string) string {
	return filepath.Join(s.root, opinionsDir, id+".json")
}

// writeJSON writes through a temp file so readers never see a partial document
func (s *FileStore) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.NewStorage(path, "cannot encode JSON", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.NewStorage(path, "cannot create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewStorage(path, "cannot write", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewStorage(path, "cannot close", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewStorage(path, "cannot rename", err)
	}
	return nil
}

func (s *FileStore) readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewStorage(path, "cannot read", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewStorage(path, "cannot decode JSON", err)
	}
	return nil
}
