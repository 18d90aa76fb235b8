package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClose(t *testing.T) {
	require.Equal(t, "[CLOSE] fd=7 reason=idle timeout", Close(7, "idle timeout"))
}

func TestBackpressure(t *testing.T) {
	require.Equal(t, "[BACKPRESSURE] fd=3 write_buffer_bytes=524289", Backpressure(3, 524289))
}

func TestControl(t *testing.T) {
	require.Equal(t, "[CONTROL] reason=metrics dump", Control("metrics dump"))
}
