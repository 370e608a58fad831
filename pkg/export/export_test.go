package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/scheduler"
)

func sampleReport() scheduler.Report {
	depot := model.Node{StopID: "D", RouteID: "r1", TripID: "t1"}
	a := model.Node{StopID: "A", RouteID: "r1", TripID: "t1", StopSequence: 1}
	b := model.Node{StopID: "B", RouteID: "r1", TripID: "t1", StopSequence: 2}
	it := model.Itinerary{
		VehicleID: "v2",
		Arcs: []model.Arc{
			{Start: depot, End: a, VehicleID: "v2", Kind: model.ArcDepotStart},
			{Start: a, End: b, VehicleID: "v2", Load: 4, Kind: model.ArcService},
			{Start: b, End: depot, VehicleID: "v2", Kind: model.ArcDepotEnd},
		},
		Times:               []model.ArcTiming{{Depart: 410, Arrive: 420}, {Depart: 420, Arrive: 430}, {Depart: 430, Arrive: 440}},
		Loads:               []int{0, 4, 0},
		DepotDeparture:      410,
		DepotArrival:        440,
		OperationalDuration: 30,
		Complete:            true,
	}
	other := model.Itinerary{VehicleID: "v1", OperationalDuration: 90, WaitingTime: 20, BreakMinutes: 45, Complete: true}
	return scheduler.Report{
		RunID: "run-1",
		Depot: "midi",
		Date:  "2024-03-01",
		Solution: model.Solution{
			Status:      model.StatusOptimal,
			FleetSize:   2,
			Itineraries: map[string]model.Itinerary{"v2": it, "v1": other},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport().Solution))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "vehicle_id,hop,kind,route_id,trip_id,from_stop,to_stop,depart,arrive,load", lines[0])
	assert.Equal(t, "v2,2,service,r1,t1,A,B,07:00,07:10,4", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "v2,3,depot-end,r1,t1,B,D,"))
}

func TestWriteVehiclesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVehiclesCSV(&buf, sampleReport().Solution))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "v1,00:00,00:00,90,20,45,0,true", lines[1])
	assert.Equal(t, "v2,06:50,07:20,30,0,0,3,true", lines[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", sampleReport()))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	sol := got["solution"].(map[string]any)
	assert.Equal(t, "optimal", sol["status"])
}

func TestChartHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "html", sampleReport()))
	html := buf.String()
	assert.Contains(t, html, "Vehicle duties midi")
	assert.Contains(t, html, "Waiting")
	assert.Contains(t, html, "v1")
	assert.Contains(t, html, "v2")
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", sampleReport()))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:05", Clock(5))
	assert.Equal(t, "25:30", Clock(1530))
	assert.Equal(t, "-00:15", Clock(-15))
}
