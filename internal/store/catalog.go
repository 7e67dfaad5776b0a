package store

import (
	"fmt"
	"os"
	"sync"

	"webstore/internal/models"
	"webstore/internal/util"
)

// CatalogStore owns the catalog document: categories, their products, and
// the curated merchandising lists. The whole document is read at startup
// and rewritten on every mutation.
type CatalogStore struct {
	mu   sync.RWMutex
	path string
	doc  models.CatalogDocument
}

// NewCatalogStore loads the catalog from path. A missing file starts an
// empty catalog; it is created on first save.
func NewCatalogStore(path string) (*CatalogStore, error) {
	s := &CatalogStore{path: path}
	if err := readDocument(path, &s.doc); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	if s.doc.Categories == nil {
		s.doc.Categories = []models.Category{}
	}
	for _, kind := range models.CuratedListKinds() {
		if list := s.doc.CuratedList(kind); *list == nil {
			*list = []string{}
		}
	}
	return s, nil
}

// View runs fn against a read-locked snapshot of the document. fn must not
// retain references past its return.
func (s *CatalogStore) View(fn func(doc *models.CatalogDocument)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.doc)
}

// Mutate applies fn to the document and persists the result. If fn errors
// or the save fails, the in-memory document is restored from a snapshot
// taken before fn ran, and the previous on-disk file is untouched.
func (s *CatalogStore) Mutate(fn func(doc *models.CatalogDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot models.CatalogDocument
	if err := clone(&s.doc, &snapshot); err != nil {
		return fmt.Errorf("failed to snapshot catalog: %w", err)
	}

	if err := fn(&s.doc); err != nil {
		s.doc = snapshot
		return err
	}

	if err := writeDocument(s.path, &s.doc); err != nil {
		s.doc = snapshot
		util.DocumentSavesFailedTotal.WithLabelValues("catalog").Inc()
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

// Save persists the current document unconditionally
func (s *CatalogStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := writeDocument(s.path, &s.doc); err != nil {
		util.DocumentSavesFailedTotal.WithLabelValues("catalog").Inc()
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}
