package cluster

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/raft"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/metrics"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

// snapshotFormat versiona el contenido del snapshot.
const snapshotFormat = 1

// State es el estado replicado sobre el que corre el gate.
// memory.Store la implementa.
type State interface {
	IndexAt(req repository.WriteRequest, now time.Time) (*repository.WriteResult, error)
	DeleteAt(req repository.DeleteRequest, now time.Time) (*repository.WriteResult, error)
	Snapshot() []*repository.Document
	Restore(docs []*repository.Document)
}

// FSM aplica las mutaciones de documentos en el mismo orden en todos los nodos.
// Todo nodo evalúa el gate sobre el mismo estado, por lo que el resultado
// (versión o conflicto) es idéntico en cada réplica.
type FSM struct {
	state State
}

// NewFSM crea un FSM sobre el estado dado.
func NewFSM(state State) *FSM { return &FSM{state: state} }

// Apply decodifica la mutación y la ejecuta. Retorna *ApplyResult, o error si
// la entrada del log es ilegible.
func (f *FSM) Apply(l *raft.Log) interface{} {
	if l == nil || len(l.Data) == 0 {
		return nil
	}
	var m Mutation
	if err := json.Unmarshal(l.Data, &m); err != nil {
		return fmt.Errorf("fsm: decode mutation at index %d: %w", l.Index, err)
	}

	var res ApplyResult
	switch m.Type {
	case MutationIndex:
		res.Result, res.Err = f.state.IndexAt(m.WriteRequest(), m.Time())
	case MutationDelete:
		res.Result, res.Err = f.state.DeleteAt(m.DeleteRequest(), m.Time())
	default:
		logger.Named("cluster.fsm").Warn("unknown mutation type",
			logger.String("type", string(m.Type)),
			logger.Int64("index", int64(l.Index)),
		)
		return fmt.Errorf("fsm: unknown mutation type %q", m.Type)
	}

	metrics.RaftFSMApplied.WithLabelValues(string(m.Type), applyOutcome(res.Err)).Inc()
	return &res
}

func applyOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case versioning.IsConflict(err):
		return metrics.ResultConflict
	case repository.IsNotFound(err):
		return metrics.ResultNotFound
	default:
		return metrics.ResultInvalid
	}
}

type snapshotFile struct {
	Format    int                    `json:"format"`
	Documents []*repository.Document `json:"documents"`
}

// Snapshot copia el estado. raft no llama Apply concurrentemente con Snapshot.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	return &docSnap{docs: f.state.Snapshot()}, nil
}

// Restore reemplaza el estado con el contenido de un snapshot (gzip + JSON).
func (f *FSM) Restore(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	defer rc.Close()

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return fmt.Errorf("fsm: open snapshot: %w", err)
	}
	defer gz.Close()

	var snap snapshotFile
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return fmt.Errorf("fsm: decode snapshot: %w", err)
	}
	if snap.Format != snapshotFormat {
		return fmt.Errorf("fsm: unsupported snapshot format %d", snap.Format)
	}
	f.state.Restore(snap.Documents)
	logger.Named("cluster.fsm").Info("snapshot restored", logger.Count(len(snap.Documents)))
	return nil
}

type docSnap struct{ docs []*repository.Document }

func (s *docSnap) Persist(sink raft.SnapshotSink) error {
	gw := gzip.NewWriter(sink)
	if err := json.NewEncoder(gw).Encode(snapshotFile{Format: snapshotFormat, Documents: s.docs}); err != nil {
		_ = gw.Close()
		_ = sink.Cancel()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *docSnap) Release() {}
