package adapter

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtconnect-go/shdr-adapter/shdr"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// testConn pairs a connection with the one bufio.Reader that owns its
// read buffer, so repeated readLine calls never drop bytes buffered
// ahead of a previous read.
type testConn struct {
	net.Conn
	r *bufio.Reader
}

func dialTestConn(t *testing.T, addr string) *testConn {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return &testConn{Conn: c, r: bufio.NewReader(c)}
}

func startAdapter(t *testing.T, cfg Config) (*Adapter, *testConn) {
	t.Helper()
	cfg.Port = freePort(t)
	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop() })

	addr := "127.0.0.1:" + strconv.Itoa(cfg.Port)
	var conn *testConn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn = &testConn{Conn: c, r: bufio.NewReader(c)}
		return true
	}, time.Second, 10*time.Millisecond)

	return a, conn
}

// readLine reads one LF-terminated line within a short deadline.
func readLine(t *testing.T, conn *testConn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := conn.r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\r\n")
}

// TestSingleClientSingleDataItem verifies one connected client receives
// the exact line for one submitted value.
func TestSingleClientSingleDataItem(t *testing.T) {
	a, conn := startAdapter(t, Config{DeviceKey: "dev1"})
	defer conn.Close()

	a.AddDataItem("Xact", "100", 1)
	line := readLine(t, conn)

	want, err := shdr.Encode(shdr.Observation{
		DataItemKey: "Xact",
		Timestamp:   1,
		Kind:        shdr.KindDataItem,
		Payload:     shdr.DataItemValue{Value: "100"},
	}, "dev1")
	require.NoError(t, err)
	require.Equal(t, want[0], line)
}

// TestDuplicateSuppression verifies submitting the same value twice
// produces exactly one line.
func TestDuplicateSuppression(t *testing.T) {
	a, conn := startAdapter(t, Config{DeviceKey: "dev1", FilterDuplicates: BoolPtr(true)})
	defer conn.Close()

	a.AddDataItem("Xact", "100", 1)
	readLine(t, conn)

	a.AddDataItem("Xact", "100", 2)

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 64)
	_, err := conn.Read(buf)
	require.Error(t, err, "expected a read timeout: no second line should arrive")
}

// TestConditionEmitsOneLinePerState verifies a multi-state condition
// submission produces one line per fault state, in order.
func TestConditionEmitsOneLinePerState(t *testing.T) {
	a, conn := startAdapter(t, Config{DeviceKey: "dev1"})
	defer conn.Close()

	a.AddCondition("Xcond", 1,
		shdr.FaultState{Level: shdr.LevelFault, NativeCode: "E001", Message: "overheat"},
		shdr.FaultState{Level: shdr.LevelWarning, NativeCode: "W002", Message: "low oil"},
	)

	l1 := readLine(t, conn)
	l2 := readLine(t, conn)
	require.Contains(t, l1, "FAULT")
	require.Contains(t, l2, "WARNING")
}

// TestReconnectReplay verifies a second connection immediately receives
// the last known value for every key.
func TestReconnectReplay(t *testing.T) {
	a, conn1 := startAdapter(t, Config{DeviceKey: "dev1"})
	defer conn1.Close()

	a.AddDataItem("Xact", "100", 1)
	readLine(t, conn1)

	addr := conn1.RemoteAddr().(*net.TCPAddr)
	conn2 := dialTestConn(t, addr.String())
	defer conn2.Close()

	line := readLine(t, conn2)
	require.Contains(t, line, "Xact")
	require.Contains(t, line, "100")
}

// TestSetUnavailablePropagatesAcrossKinds verifies UNAVAILABLE is
// emitted for every live key regardless of kind.
func TestSetUnavailablePropagatesAcrossKinds(t *testing.T) {
	a, conn := startAdapter(t, Config{DeviceKey: "dev1"})
	defer conn.Close()

	a.AddDataItem("Xact", "100", 1)
	readLine(t, conn)
	a.AddMessage("Xmsg", "hello", "", 1)
	readLine(t, conn)
	a.AddDataSet("Xset", []shdr.DataSetEntry{{Key: "a", Value: "1"}}, 1)
	readLine(t, conn)

	a.SetUnavailable(2)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		line := readLine(t, conn)
		require.Contains(t, line, shdr.Unavailable)
		switch {
		case strings.Contains(line, "Xact"):
			seen["Xact"] = true
		case strings.Contains(line, "Xmsg"):
			seen["Xmsg"] = true
		case strings.Contains(line, "Xset"):
			seen["Xset"] = true
		}
	}
	require.True(t, seen["Xact"] && seen["Xmsg"] && seen["Xset"])
}

// TestPingPongWithinTimeout verifies a client's "* PING" is answered
// with "* PONG <heartbeat_ms>".
func TestPingPongWithinTimeout(t *testing.T) {
	a, conn := startAdapter(t, Config{DeviceKey: "dev1", Heartbeat: 5 * time.Second})
	defer conn.Close()
	_ = a

	_, err := conn.Write([]byte(shdr.PingLine + "\n"))
	require.NoError(t, err)

	line := readLine(t, conn)
	require.Equal(t, shdr.PongLine(5000), line)
}

// TestWriteErrorDropsOnlyAffectedClient verifies closing one client's
// socket must not affect another client's delivery.
func TestWriteErrorDropsOnlyAffectedClient(t *testing.T) {
	a, conn1 := startAdapter(t, Config{DeviceKey: "dev1"})
	addr := conn1.RemoteAddr().(*net.TCPAddr)
	conn2 := dialTestConn(t, addr.String())
	defer conn2.Close()

	require.NoError(t, conn1.Close())
	time.Sleep(50 * time.Millisecond)

	a.AddDataItem("Xact", "100", 1)
	line := readLine(t, conn2)
	require.Contains(t, line, "Xact")
}
