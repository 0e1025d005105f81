package repository

import (
	"context"
)

// ClusterNode representa un nodo del cluster.
type ClusterNode struct {
	ID      string      `json:"id"`
	Address string      `json:"address"`
	Role    ClusterRole `json:"role"`
	Voter   bool        `json:"voter"`
}

// ClusterRole indica el rol de un nodo.
type ClusterRole string

const (
	ClusterRoleLeader    ClusterRole = "leader"
	ClusterRoleFollower  ClusterRole = "follower"
	ClusterRoleCandidate ClusterRole = "candidate"
	ClusterRoleShutdown  ClusterRole = "shutdown"
)

// ClusterStats contiene estadísticas del cluster.
type ClusterStats struct {
	NodeID       string        `json:"node_id"`
	Role         ClusterRole   `json:"role"`
	LeaderID     string        `json:"leader_id"`
	LeaderAddr   string        `json:"leader_addr"`
	Term         uint64        `json:"term"`
	CommitIndex  uint64        `json:"commit_index"`
	AppliedIndex uint64        `json:"applied_index"`
	NumPeers     int           `json:"num_peers"`
	Peers        []ClusterNode `json:"peers,omitempty"`
	Healthy      bool          `json:"healthy"`
}

// ClusterRepository expone el estado del consenso (Raft).
type ClusterRepository interface {
	// GetStats obtiene estadísticas del cluster.
	GetStats(ctx context.Context) (*ClusterStats, error)

	// IsLeader indica si este nodo es el líder.
	IsLeader(ctx context.Context) (bool, error)

	// GetLeaderID obtiene el ID del líder actual.
	GetLeaderID(ctx context.Context) (string, error)

	// GetPeers lista todos los nodos del cluster.
	GetPeers(ctx context.Context) ([]ClusterNode, error)

	// AddPeer agrega un nodo votante. Sólo el líder.
	AddPeer(ctx context.Context, id, address string) error

	// RemovePeer elimina un nodo. Sólo el líder.
	RemovePeer(ctx context.Context, id string) error
}
