package finalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/timeslice"
)

func TestNew_RequiresTargetVariableAndTable(t *testing.T) {
	t.Parallel()

	_, err := New(&chain.Metadata{Table: "Amon"})
	require.Error(t, err)

	_, err = New(&chain.Metadata{TargetVariable: "tas"})
	require.Error(t, err)

	_, err = New(&chain.Metadata{TargetVariable: "tas", Table: "Amon"})
	require.NoError(t, err)
}

func TestFixedName(t *testing.T) {
	t.Parallel()

	v, err := New(&chain.Metadata{TargetVariable: "tas", Table: "Amon"})
	require.NoError(t, err)

	namer, ok := v.(chain.FixedNamer)
	require.True(t, ok, "finalize must name its own result file")

	name, err := namer.FixedName(chain.Group{Years: timeslice.Range(1850, 1859)})
	require.NoError(t, err)
	require.Equal(t, "tas_Amon_1850-1859.nc", name)

	name, err = namer.FixedName(chain.Group{Years: timeslice.New(1850)})
	require.NoError(t, err)
	require.Equal(t, "tas_Amon_1850.nc", name)
}

func TestCommands_StampsAttributesInPlace(t *testing.T) {
	t.Parallel()

	v, err := New(&chain.Metadata{
		TargetVariable:   "tas",
		Table:            "Amon",
		TargetFrequency:  "mon",
		StandardName:     "air_temperature",
		CellMethods:      "area: time: mean",
		Description:      "Near-Surface Air Temperature",
		GlobalAttributes: map[string]string{"institution_id": "MPI-M"},
	})
	require.NoError(t, err)

	cmds, err := v.Commands(nil)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.True(t, cmds[0].InPlace())

	setAttrs, ok := cmds[0].(cdo.SetAttributes)
	require.True(t, ok)
	require.Equal(t, "tas", setAttrs.Attributes["variable_id"])
	require.Equal(t, "Amon", setAttrs.Attributes["table_id"])
	require.Equal(t, "mon", setAttrs.Attributes["frequency"])
	require.Equal(t, "air_temperature", setAttrs.Attributes["standard_name"])
	require.Equal(t, "Near-Surface Air Temperature", setAttrs.Attributes["long_name"])
	require.Equal(t, "MPI-M", setAttrs.Attributes["institution_id"])
	require.NotContains(t, setAttrs.Attributes, "cell_measures")
}
