// Package raft implementa el adapter replicado: cada escritura es una entrada
// del log de Raft y el gate corre en el FSM de cada nodo sobre un estado en
// memoria. Las lecturas son locales.
package raft

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/docstore/internal/cluster"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/metrics"
	"github.com/dropDatabas3/docstore/internal/store"
	"github.com/dropDatabas3/docstore/internal/store/adapters/memory"
)

func init() {
	store.RegisterAdapter(&raftAdapter{})
}

type raftAdapter struct{}

func (a *raftAdapter) Name() string { return "raft" }

func (a *raftAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	rc := cfg.Raft
	if rc.NodeID == "" || rc.RaftAddr == "" || rc.RaftDir == "" {
		return nil, errors.New("raft: node_id, raft_addr and raft_dir are required")
	}
	if err := metrics.RegisterRaft(nil); err != nil {
		return nil, fmt.Errorf("raft: register metrics: %w", err)
	}

	state := memory.New()
	node, err := cluster.NewNode(cluster.NodeOptions{
		NodeID:             rc.NodeID,
		RaftAddr:           rc.RaftAddr,
		RaftDir:            rc.RaftDir,
		FSM:                cluster.NewFSM(state),
		Peers:              rc.Peers,
		BootstrapPreferred: rc.Bootstrap,
		DisableBootstrap:   rc.DisableBootstrap,
		ApplyTimeout:       rc.ApplyTimeout,
		SnapshotThreshold:  rc.SnapshotThreshold,
		RaftTLSEnable:      rc.TLSEnable,
		RaftTLSCertFile:    rc.TLSCertFile,
		RaftTLSKeyFile:     rc.TLSKeyFile,
		RaftTLSCAFile:      rc.TLSCAFile,
		RaftTLSServerName:  rc.TLSServerName,
	})
	if err != nil {
		return nil, fmt.Errorf("raft: start node: %w", err)
	}

	return &raftConnection{
		node:    node,
		docs:    &documentRepo{node: node, state: state},
		cluster: NewClusterRepo(node),
	}, nil
}

type raftConnection struct {
	node    *cluster.Node
	docs    *documentRepo
	cluster *ClusterRepo
}

func (c *raftConnection) Name() string { return "raft" }

func (c *raftConnection) Ping(ctx context.Context) error {
	return c.cluster.Ping(ctx)
}

func (c *raftConnection) Close() error { return c.node.Close() }

func (c *raftConnection) Documents() repository.DocumentRepository { return c.docs }
func (c *raftConnection) Cluster() repository.ClusterRepository    { return c.cluster }
