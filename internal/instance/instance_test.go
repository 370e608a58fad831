package instance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/test/util"
)

const sample = `
date: "2024-03-04"
depot: {id: D, name: Garage}
stops:
  - {id: A, name: Gare, location: {lat: 48.1, lon: -1.6}}
  - {id: B, name: Mairie}
routes:
  - route_id: r1
    trip_id: t1
    trip_sequence: 1
    stop_ids: [A, B]
    stop_sequence: [1, 2]
    stop_times: [100, 110]
vehicles:
  - {id: v1, capacity: 40, shift_start: 0, shift_end: 600}
demands:
  - id: d1
    origin: {route_id: r1, trip_id: t1, trip_sequence: 1, stop_sequence: 1, stop_id: A}
    destination: {route_id: r1, trip_id: t1, trip_sequence: 1, stop_sequence: 2, stop_id: B}
    passengers: 4
    depot_id: D
    date: "2024-03-04"
  - id: other-day
    origin: {route_id: r1, trip_id: t1, trip_sequence: 1, stop_sequence: 1, stop_id: A}
    destination: {route_id: r1, trip_id: t1, trip_sequence: 1, stop_sequence: 2, stop_id: B}
    passengers: 9
    depot_id: D
    date: "2024-03-05"
travel:
  - {origin: D, destination: A, minutes: 12, is_depot_travel: true}
  - {origin: B, destination: D, minutes: 8, is_depot_travel: true}
`

func TestDecode_YAML(t *testing.T) {
	log := &util.RecordingLogger{}
	inst, err := Decode(strings.NewReader(sample), "yaml", log)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", inst.Date)
	assert.Equal(t, "D", inst.Input.Depot.ID)
	require.Len(t, inst.Input.Routes, 1)
	r := inst.Input.Routes[0]
	assert.Equal(t, []string{"Gare", "Mairie"}, r.StopNames)
	assert.Equal(t, model.Location{Lat: 48.1, Lon: -1.6}, r.Locations[0])
	require.NoError(t, r.Validate())

	require.Len(t, inst.Input.Demands, 1)
	assert.Equal(t, "d1", inst.Input.Demands[0].ID)
	assert.True(t, log.Warned("dropped 1 demands"))

	minutes, ok := inst.Input.Travel.Lookup("D", "A")
	assert.True(t, ok)
	assert.Equal(t, 12, minutes)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.json")
	src := `{"depot":{"id":"D"},"routes":[{"route_id":"r1","trip_id":"t1","trip_sequence":1,"stop_ids":["A"],"stop_sequence":[1],"stop_times":[5]}],
	"vehicles":[{"id":"v1","capacity":10,"shift_start":0,"shift_end":50}]}`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	inst, err := Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, inst.Input.Vehicles, 1)
	assert.Empty(t, inst.Input.Routes[0].StopNames)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader("{}"), "toml", nil)
	assert.ErrorContains(t, err, "unsupported")

	_, err = Decode(strings.NewReader(`{"routes": []}`), "json", nil)
	assert.ErrorContains(t, err, "depot id")

	_, err = Decode(strings.NewReader("routes: [oops"), "yaml", nil)
	assert.ErrorContains(t, err, "decode instance")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
