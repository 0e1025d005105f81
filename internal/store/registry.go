// Package store provee el registry de adaptadores de almacenamiento de documentos.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
)

// Adapter representa un adaptador de almacenamiento capaz de crear repositorios.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "memory", "postgres", "redis").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	// Documents retorna el repositorio de documentos versionados.
	Documents() repository.DocumentRepository

	// Cluster retorna el repositorio de cluster (nil si el adapter no replica).
	Cluster() repository.ClusterRepository
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "memory", "postgres", "redis", "jetstream", "raft"
	Name string

	// DSN connection string (postgres)
	DSN string

	// Pool settings (postgres)
	MaxOpenConns int
	MaxIdleConns int

	// MaxRetries intentos ante contención optimista (redis, jetstream).
	MaxRetries int

	Redis RedisConfig
	NATS  NATSConfig
	Raft  RaftConfig
}

// RedisConfig parámetros del adapter redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NATSConfig parámetros del adapter jetstream.
type NATSConfig struct {
	URL      string
	Bucket   string
	History  int
	Replicas int
}

// RaftConfig parámetros del adapter raft.
type RaftConfig struct {
	NodeID           string
	RaftAddr         string
	RaftDir          string
	Peers            map[string]string
	Bootstrap        bool
	DisableBootstrap bool
	ApplyTimeout     time.Duration

	// SnapshotThreshold entradas de log entre snapshots (0 = default de raft).
	SnapshotThreshold uint64

	TLSEnable     bool
	TLSCertFile   string
	TLSKeyFile    string
	TLSCAFile     string
	TLSServerName string
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de los adapters registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (available: %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
