// Package export renders scheduling results as JSON, CSV or an HTML chart.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/scheduler"
)

// Formats lists the names accepted by Write.
var Formats = []string{"json", "csv", "vehicles-csv", "html"}

// Write renders rep in the named format.
func Write(w io.Writer, format string, rep scheduler.Report) error {
	switch format {
	case "json", "":
		return WriteJSON(w, rep)
	case "csv":
		return WriteCSV(w, rep.Solution)
	case "vehicles-csv":
		return WriteVehiclesCSV(w, rep.Solution)
	case "html":
		html, err := ChartHTML(rep)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	}
	return fmt.Errorf("export: unknown format %q", format)
}

// WriteJSON writes the full run report to w.
func WriteJSON(w io.Writer, rep scheduler.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteCSV writes one row per hop of every itinerary, vehicles in id order.
func WriteCSV(w io.Writer, sol model.Solution) error {
	cw := csv.NewWriter(w)
	header := []string{"vehicle_id", "hop", "kind", "route_id", "trip_id", "from_stop", "to_stop", "depart", "arrive", "load"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, id := range sol.VehicleIDs() {
		it := sol.Itineraries[id]
		for i, a := range it.Arcs {
			var t model.ArcTiming
			if i < len(it.Times) {
				t = it.Times[i]
			}
			trip := a.End
			if a.Kind == model.ArcDepotEnd {
				trip = a.Start
			}
			rec := []string{
				id,
				strconv.Itoa(i + 1),
				a.Kind.String(),
				trip.RouteID,
				trip.TripID,
				a.Start.StopID,
				a.End.StopID,
				Clock(t.Depart),
				Clock(t.Arrive),
				strconv.Itoa(a.Load),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVehiclesCSV writes one summary row per dispatched vehicle.
func WriteVehiclesCSV(w io.Writer, sol model.Solution) error {
	cw := csv.NewWriter(w)
	header := []string{"vehicle_id", "depot_departure", "depot_arrival", "duration_min", "waiting_min", "break_min", "hops", "complete"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, id := range sol.VehicleIDs() {
		it := sol.Itineraries[id]
		rec := []string{
			id,
			Clock(it.DepotDeparture),
			Clock(it.DepotArrival),
			strconv.Itoa(it.OperationalDuration),
			strconv.Itoa(it.WaitingTime),
			strconv.Itoa(it.BreakMinutes),
			strconv.Itoa(len(it.Arcs)),
			strconv.FormatBool(it.Complete),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ChartHTML renders a bar chart comparing operational, waiting and break
// minutes per vehicle.
func ChartHTML(rep scheduler.Report) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Vehicle duties " + rep.Depot,
			Subtitle: fmt.Sprintf("%s, fleet %d, status %s", rep.Date, rep.Solution.FleetSize, rep.Solution.Status),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Vehicle"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Minutes"}),
	)

	ids := rep.Solution.VehicleIDs()
	var duration, waiting, breaks []opts.BarData
	for _, id := range ids {
		it := rep.Solution.Itineraries[id]
		duration = append(duration, opts.BarData{Value: it.OperationalDuration})
		waiting = append(waiting, opts.BarData{Value: it.WaitingTime})
		breaks = append(breaks, opts.BarData{Value: it.BreakMinutes})
	}
	bar.SetXAxis(ids).
		AddSeries("Operational", duration).
		AddSeries("Waiting", waiting).
		AddSeries("Breaks", breaks)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return buf.String(), nil
}

// Clock formats minutes after midnight as HH:MM. Hours past 23 are kept
// so that duties crossing midnight stay ordered.
func Clock(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}
