package datagram

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitSendsOneDatagramPerCall(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer listener.Close()

	addr := listener.LocalAddr().(*net.UDPAddr)
	e := New(Config{Host: "127.0.0.1", Port: addr.Port})
	require.True(t, e.Start())
	defer e.Stop()

	assert.True(t, e.Emit([]byte("!AIVDM,1,1,,A,test,0*00\r\n")))

	buf := make([]byte, 256)
	_ = listener.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "!AIVDM")
}

func TestEmitWithoutStartReturnsFalse(t *testing.T) {
	e := New(Config{Host: "127.0.0.1", Port: 1})
	assert.False(t, e.Emit([]byte("x")))
}
