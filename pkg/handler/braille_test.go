package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

func TestRemoteNumCells(t *testing.T) {
	local := NewBrailleHandler(newFakeBrailleDriver(0), Config{})
	remote := NewBrailleHandler(newFakeBrailleDriver(40), Config{})
	connectPair(t, local, remote)

	cells, err := local.RemoteNumCells(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 40, cells)
}

func TestDisplayRemote(t *testing.T) {
	remoteDrv := newFakeBrailleDriver(40)
	local := NewBrailleHandler(newFakeBrailleDriver(0), Config{})
	remote := NewBrailleHandler(remoteDrv, Config{})
	connectPair(t, local, remote)

	cells := []byte{0x01, 0x03, 0x07}
	require.NoError(t, local.DisplayRemote(cells))

	require.Eventually(t, func() bool {
		return len(remoteDrv.displayedCells()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, cells, remoteDrv.displayedCells()[0])
}

func TestGestureForwarding(t *testing.T) {
	local := NewBrailleHandler(newFakeBrailleDriver(40), Config{})
	remote := NewBrailleHandler(newFakeBrailleDriver(0), Config{})

	executed := make(chan driver.Gesture, 1)
	remote.SetExecuteGestureCallback(func(gesture driver.Gesture) error {
		executed <- gesture
		return nil
	})
	connectPair(t, local, remote)

	gesture := driver.Gesture{ID: "br(fake):routing", Route: 5}

	// Before the peer registers interest the gesture stays local.
	err := local.ForwardGesture(gesture)
	require.ErrorIs(t, err, ErrGestureNotIntercepted)

	require.NoError(t, remote.InterceptRemoteGestures([]string{"br(fake):routing"}))
	require.Eventually(t, func() bool {
		return local.GestureIntercepted("br(fake):routing")
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, local.ForwardGesture(gesture))
	select {
	case got := <-executed:
		assert.Equal(t, gesture, got)
	case <-time.After(2 * time.Second):
		t.Fatal("forwarded gesture never executed")
	}
}

func TestInterceptListReplaced(t *testing.T) {
	local := NewBrailleHandler(newFakeBrailleDriver(40), Config{})
	remote := NewBrailleHandler(newFakeBrailleDriver(0), Config{})
	connectPair(t, local, remote)

	require.NoError(t, remote.InterceptRemoteGestures([]string{"a", "b"}))
	require.Eventually(t, func() bool {
		return local.GestureIntercepted("a") && local.GestureIntercepted("b")
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, remote.InterceptRemoteGestures([]string{"b"}))
	require.Eventually(t, func() bool {
		return !local.GestureIntercepted("a")
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, local.GestureIntercepted("b"))
}

func TestGestureMapRequest(t *testing.T) {
	local := NewBrailleHandler(newFakeBrailleDriver(0), Config{})
	remote := NewBrailleHandler(newFakeBrailleDriver(40), Config{})
	connectPair(t, local, remote)

	v, err := local.GetRemoteAttribute(wire.AttrGestureMap, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"br(fake):routing": "routeTo"}, v)
}

func TestNumCellsReceiverRejectsBadPayload(t *testing.T) {
	h := NewBrailleHandler(newFakeBrailleDriver(40), Config{})
	ft := &fakeTransport{}
	h.Bind(ft)

	h.OnReceive(attributeFrame(t, wire.DriverBraille, wire.AttrNumCells, []byte{1, 2}))

	// The bad update must not land in the cache; the default holds.
	v, err := h.Values().GetValue(wire.AttrNumCells)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}
