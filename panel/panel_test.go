package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBytes(t *testing.T) {
	// The panel protocol is fixed byte sequences captured from vendor
	// software; these goldens pin them against accidental edits.
	assert.Equal(t, []byte{0xA5, 0x50, 0x09}, cmdStop)
	assert.Equal(t, []byte{0xA5, 0x50, 0x08}, cmdOrigin)
	assert.Equal(t, []byte{0xA5, 0x53, 0x00}, cmdFrame)
	assert.Equal(t, []byte{0xA5, 0x50, 0x03}, cmdYMinus)
	assert.Equal(t, []byte{0xA5, 0x51, 0x03}, cmdYPlus)
	assert.Equal(t, []byte{0xA5, 0x50, 0x0A}, cmdZMinus)
	assert.Equal(t, []byte{0xA5, 0x51, 0x0A}, cmdZPlus)
	assert.Equal(t, []byte{0xCC}, cmdHandshake)
	assert.Equal(t, byte(0xCC), AckByte)
}

func TestDial_DryRun(t *testing.T) {
	conn, err := Dial("192.168.1.100", WithDryRun(true))
	require.NoError(t, err)
	defer conn.Close()

	// Every press succeeds without a socket.
	assert.NoError(t, conn.Stop())
	assert.NoError(t, conn.SetOrigin())
	assert.NoError(t, conn.Frame())
	assert.NoError(t, conn.JogY(true))
	assert.NoError(t, conn.JogY(false))
	assert.NoError(t, conn.JogZ(true))
	assert.NoError(t, conn.JogZ(false))
}

func TestConfig_Options(t *testing.T) {
	cfg := &Config{}
	WithPort(50300)(cfg)
	WithSourcePort(40300)(cfg)
	WithDryRun(true)(cfg)

	assert.Equal(t, 50300, cfg.port)
	assert.Equal(t, 40300, cfg.sourcePort)
	assert.True(t, cfg.dryRun)
}

func TestClose_WithoutSocket(t *testing.T) {
	conn, err := Dial("10.0.0.1", WithDryRun(true))
	require.NoError(t, err)
	assert.NoError(t, conn.Close())
}
