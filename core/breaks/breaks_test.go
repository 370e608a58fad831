package breaks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsched/core/breaks"
	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/network"
	"github.com/kilianp07/fleetsched/test/util"
)

// connected builds two single-hop trips for one vehicle so that exactly one
// inter-trip arc leaves B at firstEnd and reaches C at secondStart.
func connected(t *testing.T, setting model.Setting, shiftEnd, firstEnd, secondStart int) (*model.Network, model.Arc) {
	t.Helper()
	r1 := util.Trip("r1", "t1", []string{"A", "B"}, []int{firstEnd - 10, firstEnd})
	r2 := util.Trip("r2", "t2", []string{"C", "E"}, []int{secondStart, secondStart + 10})
	in := util.Input([]model.Route{r1, r2},
		[]model.Vehicle{util.Bus("v1", 10, 0, shiftEnd)},
		[]model.PassengerDemand{util.Ride("d1", r1, 1, 2, 1), util.Ride("d2", r2, 1, 2, 1)},
		util.UniformTravel(10, "A", "B", "C", "E"))
	net, err := network.Build(in, network.Options{Setting: setting, Coverage: model.CoverTripsWithDemand}, nil)
	require.NoError(t, err)
	inter := net.InterTripArcs()
	require.Len(t, inter, 1)
	return net, inter[0]
}

func TestClassify_Long45Threshold(t *testing.T) {
	net, arc := connected(t, model.SettingCapacitatedBreaks, 300, 110, 165)
	sets := breaks.Classify(net, nil)
	assert.Equal(t, []string{"v1"}, sets.LongShift)
	assert.True(t, sets.Contains(breaks.KindLong45, arc))
	assert.True(t, sets.Contains(breaks.KindSplit15, arc))
	assert.False(t, sets.Contains(breaks.KindSplit30, arc))

	// One minute less of slack.
	net, arc = connected(t, model.SettingCapacitatedBreaks, 300, 110, 164)
	sets = breaks.Classify(net, nil)
	assert.False(t, sets.Contains(breaks.KindLong45, arc))
	assert.True(t, sets.Contains(breaks.KindSplit15, arc))
}

func TestClassify_Split30Window(t *testing.T) {
	net, arc := connected(t, model.SettingCapacitatedBreaks, 300, 200, 240)
	sets := breaks.Classify(net, nil)
	assert.True(t, sets.Contains(breaks.KindSplit30, arc))
	assert.False(t, sets.Contains(breaks.KindSplit15, arc))
	assert.False(t, sets.Contains(breaks.KindLong45, arc))
	assert.Equal(t, 1, sets.Total())

	// Leaving after 4.75 hours is too late for the second split break.
	net, arc = connected(t, model.SettingCapacitatedBreaks, 400, 290, 330)
	sets = breaks.Classify(net, nil)
	assert.False(t, sets.Contains(breaks.KindSplit30, arc))
}

func TestClassify_ShortShiftAndUncapacitated(t *testing.T) {
	net, _ := connected(t, model.SettingCapacitatedBreaks, 270, 110, 165)
	sets := breaks.Classify(net, nil)
	assert.Empty(t, sets.LongShift)
	assert.Zero(t, sets.Total())

	net, _ = connected(t, model.SettingUncapacitated, 300, 110, 165)
	sets = breaks.Classify(net, nil)
	assert.Empty(t, sets.LongShift)
	assert.Zero(t, sets.Total())
}

func TestKind_Minutes(t *testing.T) {
	assert.Equal(t, 45, breaks.KindLong45.Minutes())
	assert.Equal(t, 15, breaks.KindSplit15.Minutes())
	assert.Equal(t, 30, breaks.KindSplit30.Minutes())
	assert.Equal(t, "split-30", breaks.KindSplit30.String())
}
