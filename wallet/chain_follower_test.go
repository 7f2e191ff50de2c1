package wallet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/tomb.v2"
)

func newTestFollower(t *testing.T, sc *stubChain) (*ChainFollower, <-chan *FollowerNotification) {
	t.Helper()
	f := NewChainFollower(new(tomb.Tomb), sc, setupEngine(t))
	return f, f.Subscribe()
}

func waitNotification(t *testing.T, sub <-chan *FollowerNotification) *FollowerNotification {
	t.Helper()
	select {
	case notif := <-sub:
		return notif
	case <-time.After(time.Second):
		t.Fatal("expected a follower notification")
		return nil
	}
}

func TestFollowerAdvanceReportsPreviousTipAsCommon(t *testing.T) {
	sc := newStubChain()
	f, sub := newTestFollower(t, sc)

	// Bootstrap: the first poll only seeds the checkpoint ring.
	require.NoError(t, f.poll())
	require.Equal(t, uint64(1), f.LastSequence())

	sc.extend(1)
	require.NoError(t, f.poll())

	notif := waitNotification(t, sub)
	require.Equal(t, uint64(2), notif.ChainTip)
	require.Equal(t, uint64(1), notif.CommonTip)
}

func TestFollowerReorgReportsCommonAncestor(t *testing.T) {
	sc := newStubChain()
	f, sub := newTestFollower(t, sc)

	require.NoError(t, f.poll())
	sc.extend(1)
	require.NoError(t, f.poll())
	waitNotification(t, sub)
	sc.extend(2)
	require.NoError(t, f.poll())
	waitNotification(t, sub)

	// Replace blocks 2 and 3 with a competing branch of the same length.
	// The only block both branches share is genesis.
	sc.rewind()
	sc.rewind()
	sc.extend(9)
	sc.extend(10)

	require.NoError(t, f.poll())
	notif := waitNotification(t, sub)
	require.Equal(t, uint64(3), notif.ChainTip)
	require.Equal(t, uint64(1), notif.CommonTip)
}

func TestFollowerSafetyStopsWhenChainShrinks(t *testing.T) {
	sc := newStubChain()
	f, _ := newTestFollower(t, sc)

	require.NoError(t, f.poll())
	sc.extend(1)
	require.NoError(t, f.poll())

	// A head below our newest checkpoint with no replacement branch means
	// the node we talk to lost history; following it blindly would roll
	// accounts back with nothing to replay forward.
	sc.rewind()
	require.ErrorIs(t, f.poll(), ErrChainFollowerSafetyStop)
}
