package registry_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtconnect-go/shdr-adapter/registry"
)

func TestClientWriteLineDeliversToPeer(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := registry.NewClient("c1", server, time.Second)

	go func() {
		_ = c.WriteLine("hello")
	}()

	r := bufio.NewReader(client)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)
}

func TestRegistryAddReplacesStaleEntry(t *testing.T) {
	r := registry.New()
	s1, c1 := net.Pipe()
	defer s1.Close()
	defer c1.Close()
	s2, c2 := net.Pipe()
	defer s2.Close()
	defer c2.Close()

	first := registry.NewClient("dup", s1, 0)
	second := registry.NewClient("dup", s2, 0)

	assert.Nil(t, r.Add(first))
	replaced := r.Add(second)
	require.NotNil(t, replaced)
	assert.Equal(t, first, replaced)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("dup")
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestRegistryRemoveAndSnapshot(t *testing.T) {
	r := registry.New()
	s1, c1 := net.Pipe()
	defer s1.Close()
	defer c1.Close()

	cl := registry.NewClient("a", s1, 0)
	r.Add(cl)
	assert.Len(t, r.Snapshot(), 1)

	r.Remove("a")
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, 0, r.Len())
}
