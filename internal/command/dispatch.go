// Package command interprets a decoded frame payload as one of the ASCII
// commands in spec.md §4.5's table and produces a reply payload plus any
// side effect on the loop (currently only a shutdown request).
package command

import "bytes"

// Effect is a side effect the dispatcher asks the event loop to perform
// after replying. The dispatcher itself never touches loop state (spec §9:
// "the event loop is the only place that decides").
type Effect int

const (
	EffectNone Effect = iota
	EffectShutdownRequested
)

const (
	cmdPing     = "PING"
	cmdEchoPfx  = "ECHO "
	cmdStats    = "STATS"
	cmdClose    = "CLOSE"
	cmdShutdown = "SHUTDOWN"
)

var replyPong    = []byte("PONG")
var replyOK      = []byte("OK")
var replyUnknown = []byte("ERR unknown command")

// StatsFunc renders the current STATS reply text on demand, since building
// it requires state (connection count, metrics) the dispatcher does not
// own.
type StatsFunc func() string

// Dispatch matches payload against spec §4.5's command table and returns
// the reply payload (unframed — the caller encodes it) plus any requested
// effect. ECHO is matched by prefix against the untrimmed payload and
// returns everything after "ECHO " verbatim, since those bytes are the
// echoed argument P, not command syntax — trimming them would violate
// spec §8's round-trip law. The fixed, argument-less commands are matched
// after trimming trailing space/CR/LF, which belongs to framing noise
// rather than to any of them.
func Dispatch(payload []byte, stats StatsFunc) ([]byte, Effect) {
	if bytes.HasPrefix(payload, []byte(cmdEchoPfx)) {
		return payload[len(cmdEchoPfx):], EffectNone
	}

	trimmed := bytes.TrimRight(payload, " \r\n")

	switch {
	case bytes.Equal(trimmed, []byte(cmdPing)):
		return replyPong, EffectNone
	case bytes.Equal(trimmed, []byte(cmdStats)):
		return []byte(stats()), EffectNone
	case bytes.Equal(trimmed, []byte(cmdClose)):
		// The server replies OK but does not initiate FIN; the client is
		// expected to close (spec §9, endorsed option (a)).
		return replyOK, EffectNone
	case bytes.Equal(trimmed, []byte(cmdShutdown)):
		return replyOK, EffectShutdownRequested
	default:
		return replyUnknown, EffectNone
	}
}
