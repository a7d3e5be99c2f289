package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")

	sink, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer sink.Close()

	capture := filepath.Join(dir, "capture.log")
	require.NoError(t, os.WriteFile(capture, []byte("a: t: x - 3 - one\na: t: x - 3 - two\n"), 0o644))

	assert.Equal(t, 2, run([]string{"-state", state}), "no capture file")
	assert.Equal(t, 2, run([]string{"-no-such-flag"}), "bad flag")
	assert.Equal(t, 1, run([]string{"-state", state, "-target", sink.LocalAddr().String(), filepath.Join(dir, "missing.log")}))
	assert.Equal(t, 0, run([]string{"-state", state, "-target", sink.LocalAddr().String(), capture}))
}
