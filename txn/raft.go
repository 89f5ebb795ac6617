package txn

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// noopFSM is the raft.FSM this module applies: the reconciler cluster
// only uses raft for leader election (DOMAIN STACK, "hashicorp/raft +
// hashicorp/raft-boltdb"), never for replicating reconciler state
// itself (ReconcileTask queues stay coordinator-local and are not handed
// over or rebuilt when leadership moves), so there is
// nothing for Apply to do.
type noopFSM struct{}

func (noopFSM) Apply(*raft.Log) interface{}         { return nil }
func (noopFSM) Snapshot() (raft.FSMSnapshot, error) { return noopSnapshot{}, nil }
func (noopFSM) Restore(rc io.ReadCloser) error       { return rc.Close() }

type noopSnapshot struct{}

func (noopSnapshot) Persist(sink raft.SnapshotSink) error { return sink.Close() }
func (noopSnapshot) Release()                             {}

// RaftNodeConfig configures a single raft.Raft node backing a
// coordinator's LeaderChecker (RaftLeaderChecker).
type RaftNodeConfig struct {
	NodeID    string
	BindAddr  string
	DataDir   string
	Bootstrap bool
}

// NewRaftNode builds a raft.Raft node with a bolt-backed log/stable
// store and file-backed snapshots, grounded on cuemby-warren's own
// raft-boltdb wiring (poc/raft/main.go): TCP transport, NewBoltStore
// for both the log and stable stores, NewFileSnapshotStore for
// snapshots. cfg.Bootstrap single-node-bootstraps a fresh cluster; a
// node joining an existing cluster instead calls r.AddVoter itself
// once this returns.
func NewRaftNode(cfg RaftNodeConfig) (*raft.Raft, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("raft data dir: %w", err)
	}

	conf := raft.DefaultConfig()
	conf.LocalID = raft.ServerID(cfg.NodeID)

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve raft addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("raft transport: %w", err)
	}

	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 3, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("raft snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("raft log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("raft stable store: %w", err)
	}

	r, err := raft.NewRaft(conf, noopFSM{}, logStore, stableStore, snapshots, transport)
	if err != nil {
		return nil, fmt.Errorf("raft new: %w", err)
	}

	if cfg.Bootstrap {
		r.BootstrapCluster(raft.Configuration{
			Servers: []raft.Server{{ID: conf.LocalID, Address: transport.LocalAddr()}},
		})
	}

	return r, nil
}
