package raft

import (
	"context"
	"fmt"
	"strconv"

	hraft "github.com/hashicorp/raft"

	"github.com/dropDatabas3/docstore/internal/cluster"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
)

// ClusterRepo implementa repository.ClusterRepository usando cluster.Node (Raft).
type ClusterRepo struct {
	node *cluster.Node
}

// NewClusterRepo crea un ClusterRepository que wrappea un cluster.Node existente.
func NewClusterRepo(node *cluster.Node) *ClusterRepo {
	return &ClusterRepo{node: node}
}

// ─── Status ───

func (r *ClusterRepo) GetStats(ctx context.Context) (*repository.ClusterStats, error) {
	if r.node == nil {
		return nil, repository.ErrClusterUnavailable
	}

	stats := r.node.Stats()

	term, _ := strconv.ParseUint(stats["term"], 10, 64)
	commitIndex, _ := strconv.ParseUint(stats["commit_index"], 10, 64)
	appliedIndex, _ := strconv.ParseUint(stats["applied_index"], 10, 64)
	numPeers, _ := strconv.Atoi(stats["num_peers"])

	out := &repository.ClusterStats{
		NodeID:       r.node.NodeID(),
		Role:         roleFromState(stats["state"]),
		LeaderID:     r.node.LeaderID(),
		LeaderAddr:   r.node.LeaderAddr(),
		Term:         term,
		CommitIndex:  commitIndex,
		AppliedIndex: appliedIndex,
		NumPeers:     numPeers,
		Healthy:      stats["state"] == "Leader" || stats["state"] == "Follower",
	}
	if peers, err := r.GetPeers(ctx); err == nil {
		out.Peers = peers
	}
	return out, nil
}

func roleFromState(state string) repository.ClusterRole {
	switch state {
	case "Leader":
		return repository.ClusterRoleLeader
	case "Candidate":
		return repository.ClusterRoleCandidate
	case "Shutdown":
		return repository.ClusterRoleShutdown
	default:
		return repository.ClusterRoleFollower
	}
}

func (r *ClusterRepo) IsLeader(ctx context.Context) (bool, error) {
	if r.node == nil {
		return false, nil
	}
	return r.node.IsLeader(), nil
}

func (r *ClusterRepo) GetLeaderID(ctx context.Context) (string, error) {
	if r.node == nil {
		return "", nil
	}
	return r.node.LeaderID(), nil
}

func (r *ClusterRepo) GetPeers(ctx context.Context) ([]repository.ClusterNode, error) {
	if r.node == nil {
		return nil, nil
	}

	// Configuración real del cluster via Raft (no el mapa estático)
	config, err := r.node.GetConfiguration(ctx)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}

	var nodes []repository.ClusterNode
	leaderID := r.node.LeaderID()

	for _, srv := range config.Servers {
		id := string(srv.ID)
		addr := string(srv.Address)

		role := repository.ClusterRoleFollower
		// LeaderID puede venir como ID o como Address según el estado del cluster
		if id == leaderID || addr == leaderID {
			role = repository.ClusterRoleLeader
		}

		nodes = append(nodes, repository.ClusterNode{
			ID:      id,
			Address: addr,
			Role:    role,
			Voter:   srv.Suffrage == hraft.Voter,
		})
	}
	return nodes, nil
}

// ─── Membership ───

func (r *ClusterRepo) AddPeer(ctx context.Context, id, address string) error {
	if r.node == nil {
		return repository.ErrClusterUnavailable
	}
	if !r.node.IsLeader() {
		return repository.ErrNotLeader
	}
	return r.node.AddVoter(ctx, id, address)
}

func (r *ClusterRepo) RemovePeer(ctx context.Context, id string) error {
	if r.node == nil {
		return repository.ErrClusterUnavailable
	}
	if !r.node.IsLeader() {
		return repository.ErrNotLeader
	}
	return r.node.RemoveServer(ctx, id)
}

// ─── Health ───

// Ping falla si el nodo no conoce líder.
func (r *ClusterRepo) Ping(ctx context.Context) error {
	if r.node == nil {
		return repository.ErrClusterUnavailable
	}
	if r.node.LeaderID() == "" {
		return fmt.Errorf("%w: no leader", repository.ErrClusterUnavailable)
	}
	return nil
}

var _ repository.ClusterRepository = (*ClusterRepo)(nil)
