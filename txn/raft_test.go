package txn_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/txn"
)

func TestNewRaftNodeBootstrapsSingleNodeLeader(t *testing.T) {
	dir := t.TempDir()

	node, err := txn.NewRaftNode(txn.RaftNodeConfig{
		NodeID:    "node1",
		BindAddr:  "127.0.0.1:0",
		DataDir:   filepath.Join(dir, "node1"),
		Bootstrap: true,
	})
	require.NoError(t, err)
	defer node.Shutdown().Error()

	require.Eventually(t, func() bool {
		return node.State() == raft.Leader
	}, 5*time.Second, 50*time.Millisecond)

	checker := txn.RaftLeaderChecker{Raft: node}
	require.True(t, checker.IsLeader())
}
