package convert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/cmorize/internal/cdo"
)

func TestUnitCommands_KelvinToCelsius(t *testing.T) {
	t.Parallel()

	cmds, err := UnitCommands("K", "degC")
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	affine, ok := cmds[0].(cdo.Affine)
	require.True(t, ok, "first command must be the affine transform")
	require.Equal(t, "subc", affine.Op)
	require.InDelta(t, 273.15, affine.Constant, 0)

	setUnit, ok := cmds[1].(cdo.SetUnit)
	require.True(t, ok, "trailing command must rewrite the unit attribute")
	require.Equal(t, "degC", setUnit.Unit)
}

func TestUnitCommands_IdenticalSpelling(t *testing.T) {
	t.Parallel()

	cmds, err := UnitCommands("K", "K")
	require.NoError(t, err)
	require.Empty(t, cmds)
}

func TestUnitCommands_PhysicallyEqualSpelling(t *testing.T) {
	t.Parallel()

	cmds, err := UnitCommands("m/s", "m s-1")
	require.NoError(t, err)
	require.Empty(t, cmds)
}

func TestUnitCommands_ScalingPair(t *testing.T) {
	t.Parallel()

	cmds, err := UnitCommands("kg m-2 s-1", "mm day-1")
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	affine, ok := cmds[0].(cdo.Affine)
	require.True(t, ok)
	require.Equal(t, "mulc", affine.Op)
	require.InDelta(t, 86400, affine.Constant, 0)
}

func TestUnitCommands_UnsupportedPairNamesBothUnits(t *testing.T) {
	t.Parallel()

	_, err := UnitCommands("foo", "bar")
	require.Error(t, err)

	var convErr *UnsupportedConversionError
	require.ErrorAs(t, err, &convErr)
	require.Equal(t, "foo", convErr.From)
	require.Equal(t, "bar", convErr.To)
	require.Contains(t, err.Error(), `"foo"`)
	require.Contains(t, err.Error(), `"bar"`)
}

func TestUnitSupported_NeverErrors(t *testing.T) {
	t.Parallel()

	require.True(t, UnitSupported("K", "degC"))
	require.True(t, UnitSupported("K", "K"))
	require.True(t, UnitSupported("m/s", "m s-1"))
	require.False(t, UnitSupported("foo", "bar"))
}
