package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/backend/virtual"
	"github.com/xkilldash9x/loopautoma/internal/config"
)

func TestOpenVirtual(t *testing.T) {
	cfg := config.BackendConfig{Kind: "virtual", Virtual: config.VirtualBackendConfig{Width: 320, Height: 200}}

	set, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer set.Close()

	assert.Equal(t, "virtual", set.Kind)
	assert.IsType(t, &virtual.Screen{}, set.Capture)
	assert.IsType(t, &virtual.Recorder{}, set.Automation)

	displays, err := set.Capture.ListDisplays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 320, displays[0].Width)
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(context.Background(), config.BackendConfig{Kind: "vnc"}, zap.NewNop())
	assert.ErrorContains(t, err, `unknown backend kind "vnc"`)
}

func TestNilSetClose(t *testing.T) {
	var s *Set
	assert.NoError(t, s.Close())
}
