package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noStats() string { return "connections=0" }

func TestPing(t *testing.T) {
	reply, effect := Dispatch([]byte("PING"), noStats)
	require.Equal(t, []byte("PONG"), reply)
	require.Equal(t, EffectNone, effect)
}

func TestEcho(t *testing.T) {
	reply, effect := Dispatch([]byte("ECHO test"), noStats)
	require.Equal(t, []byte("test"), reply)
	require.Equal(t, EffectNone, effect)
}

func TestEchoPreservesTrailingWhitespaceInPayload(t *testing.T) {
	reply, _ := Dispatch([]byte("ECHO test\r\n"), noStats)
	require.Equal(t, []byte("test\r\n"), reply)
}

func TestPingIgnoresTrailingWhitespace(t *testing.T) {
	reply, effect := Dispatch([]byte("PING\r\n"), noStats)
	require.Equal(t, []byte("PONG"), reply)
	require.Equal(t, EffectNone, effect)
}

func TestStatsDelegatesToStatsFunc(t *testing.T) {
	reply, effect := Dispatch([]byte("STATS"), noStats)
	require.Equal(t, []byte("connections=0"), reply)
	require.Equal(t, EffectNone, effect)
}

func TestClose(t *testing.T) {
	reply, effect := Dispatch([]byte("CLOSE"), noStats)
	require.Equal(t, []byte("OK"), reply)
	require.Equal(t, EffectNone, effect)
}

func TestShutdownRequestsEffect(t *testing.T) {
	reply, effect := Dispatch([]byte("SHUTDOWN"), noStats)
	require.Equal(t, []byte("OK"), reply)
	require.Equal(t, EffectShutdownRequested, effect)
}

func TestUnknownCommand(t *testing.T) {
	reply, effect := Dispatch([]byte("FOO"), noStats)
	require.Equal(t, []byte("ERR unknown command"), reply)
	require.Equal(t, EffectNone, effect)
}
