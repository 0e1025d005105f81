package memory

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
)

const shardCount = 64

type key struct {
	namespace string
	id        string
}

// slot serializa las escrituras de un registro; las lecturas cargan el puntero sin lock.
type slot struct {
	mu  sync.Mutex
	doc atomic.Pointer[repository.Document]
}

type shard struct {
	mu    sync.RWMutex
	slots map[key]*slot
}

// Store es un DocumentRepository en memoria con gate atómico por registro.
// También es el estado replicado del FSM de Raft.
type Store struct {
	shards [shardCount]*shard
	now    func() time.Time
}

// New crea un Store vacío.
func New() *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{slots: make(map[key]*slot)}
	}
	return s
}

func (s *Store) shardFor(k key) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k.namespace))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.id))
	return s.shards[h.Sum32()%shardCount]
}

func (s *Store) lookup(k key) *slot {
	sh := s.shardFor(k)
	sh.mu.RLock()
	sl := sh.slots[k]
	sh.mu.RUnlock()
	return sl
}

func (s *Store) slotFor(k key) *slot {
	if sl := s.lookup(k); sl != nil {
		return sl
	}
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sl, ok := sh.slots[k]
	if !ok {
		sl = &slot{}
		sh.slots[k] = sl
	}
	return sl
}

// Get retorna el documento vivo.
func (s *Store) Get(ctx context.Context, namespace, id string) (*repository.Document, error) {
	doc := s.Raw(namespace, id)
	if !doc.Live() {
		return nil, repository.ErrNotFound
	}
	return doc, nil
}

// Raw retorna el registro tal cual, incluyendo tombstones. nil si no existe.
func (s *Store) Raw(namespace, id string) *repository.Document {
	sl := s.lookup(key{namespace, id})
	if sl == nil {
		return nil
	}
	return sl.doc.Load().Clone()
}

// Index evalúa el gate y persiste con la hora actual.
func (s *Store) Index(ctx context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	return s.IndexAt(req, s.now())
}

// Delete evalúa el gate y deja un tombstone con la hora actual.
func (s *Store) Delete(ctx context.Context, req repository.DeleteRequest) (*repository.WriteResult, error) {
	return s.DeleteAt(req, s.now())
}

// IndexAt es Index con timestamp explícito (determinista para el FSM).
func (s *Store) IndexAt(req repository.WriteRequest, now time.Time) (*repository.WriteResult, error) {
	sl := s.slotFor(key{req.Namespace, req.ID})
	sl.mu.Lock()
	defer sl.mu.Unlock()

	next, res, err := repository.ApplyWrite(sl.doc.Load(), req, now)
	if err != nil {
		return nil, err
	}
	sl.doc.Store(next)
	return res, nil
}

// DeleteAt es Delete con timestamp explícito.
func (s *Store) DeleteAt(req repository.DeleteRequest, now time.Time) (*repository.WriteResult, error) {
	k := key{req.Namespace, req.ID}
	sl := s.lookup(k)
	if sl == nil {
		return nil, repository.ErrNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	next, res, err := repository.ApplyDelete(sl.doc.Load(), req, now)
	if err != nil {
		return nil, err
	}
	sl.doc.Store(next)
	return res, nil
}

// Snapshot retorna todos los registros (tombstones incluidos) ordenados por clave.
func (s *Store) Snapshot() []*repository.Document {
	var out []*repository.Document
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, sl := range sh.slots {
			if d := sl.doc.Load(); d != nil {
				out = append(out, d.Clone())
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Restore reemplaza todo el estado.
func (s *Store) Restore(docs []*repository.Document) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.slots = make(map[key]*slot)
		sh.mu.Unlock()
	}
	for _, d := range docs {
		if d == nil {
			continue
		}
		sl := s.slotFor(key{d.Namespace, d.ID})
		sl.doc.Store(d.Clone())
	}
}

// Len cuenta los registros, tombstones incluidos.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.slots)
		sh.mu.RUnlock()
	}
	return n
}

var _ repository.DocumentRepository = (*Store)(nil)
