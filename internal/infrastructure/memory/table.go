package memory

import (
	"sync"

	"github.com/jhoicas/docledger/internal/domain"
)

// table filas confirmadas de un tipo, en orden de inserción.
type table[T any] struct {
	rows    map[string]T
	order   []string
	clone   func(T) T
	version func(T) int    // nil en tablas append-only
	unique  func(T) string // clave única; "" no participa
}

func newTable[T any](clone func(T) T, version func(T) int) *table[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &table[T]{rows: make(map[string]T), clone: clone, version: version}
}

// withUnique declara una clave única verificada al confirmar, como un índice UNIQUE.
func (t *table[T]) withUnique(key func(T) string) *table[T] {
	t.unique = key
	return t
}

// staged cambios pendientes de una transacción sobre una tabla.
type staged[T any] struct {
	base   *table[T]
	mu     *sync.RWMutex
	rows   map[string]T
	added  []string
	expect map[string]int // versión confirmada sobre la que se hizo el primer update
}

func newStaged[T any](base *table[T], mu *sync.RWMutex) *staged[T] {
	return &staged[T]{base: base, mu: mu, rows: make(map[string]T), expect: make(map[string]int)}
}

func (s *staged[T]) get(id string) (T, bool) {
	if v, ok := s.rows[id]; ok {
		return s.base.clone(v), true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.base.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.base.clone(v), true
}

func (s *staged[T]) insert(id string, v T) error {
	if _, ok := s.get(id); ok {
		return domain.ErrDuplicate
	}
	s.rows[id] = s.base.clone(v)
	s.added = append(s.added, id)
	return nil
}

// update reemplaza la fila si su versión actual es readVersion.
func (s *staged[T]) update(id string, v T, readVersion int) error {
	cur, ok := s.get(id)
	if !ok {
		return domain.ErrNotFound
	}
	if s.base.version(cur) != readVersion {
		return domain.ErrConcurrencyConflict
	}
	if _, ok := s.rows[id]; !ok {
		s.expect[id] = readVersion
	}
	s.rows[id] = s.base.clone(v)
	return nil
}

// list filas confirmadas (con los cambios de la transacción) y luego las nuevas.
func (s *staged[T]) list(keep func(T) bool) []T {
	s.mu.RLock()
	out := make([]T, 0)
	for _, id := range s.base.order {
		v := s.base.rows[id]
		if st, ok := s.rows[id]; ok {
			v = st
		}
		if keep(v) {
			out = append(out, s.base.clone(v))
		}
	}
	s.mu.RUnlock()
	for _, id := range s.added {
		if v := s.rows[id]; keep(v) {
			out = append(out, s.base.clone(v))
		}
	}
	return out
}

// validate se llama con el lock de escritura del store tomado.
func (s *staged[T]) validate() error {
	for id, ver := range s.expect {
		cur, ok := s.base.rows[id]
		if !ok || s.base.version(cur) != ver {
			return domain.ErrConcurrencyConflict
		}
	}
	for _, id := range s.added {
		if _, ok := s.base.rows[id]; ok {
			return domain.ErrDuplicate
		}
	}
	return s.validateUnique()
}

// validateUnique revisa la clave única contra lo confirmado por otras transacciones.
func (s *staged[T]) validateUnique() error {
	if s.base.unique == nil {
		return nil
	}
	seen := make(map[string]string, len(s.rows))
	for id, v := range s.rows {
		key := s.base.unique(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			return domain.ErrDuplicate
		}
		seen[key] = id
	}
	if len(seen) == 0 {
		return nil
	}
	for id, cur := range s.base.rows {
		if st, ok := s.rows[id]; ok {
			cur = st
		}
		key := s.base.unique(cur)
		if key == "" {
			continue
		}
		if owner, ok := seen[key]; ok && owner != id {
			return domain.ErrDuplicate
		}
	}
	return nil
}

func (s *staged[T]) apply() {
	for _, id := range s.added {
		s.base.order = append(s.base.order, id)
	}
	for id, v := range s.rows {
		s.base.rows[id] = v
	}
}
