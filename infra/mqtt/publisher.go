// Package mqtt publishes solved schedules to an MQTT broker so depot
// systems can pick up vehicle duties.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/monitoring"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/infra/logger"
)

// SolutionMessage is the payload sent on <prefix>/<depot>/solution.
type SolutionMessage struct {
	RunID      string   `json:"run_id"`
	Depot      string   `json:"depot"`
	Date       string   `json:"date,omitempty"`
	Status     string   `json:"status"`
	FleetSize  int      `json:"fleet_size"`
	Objective  float64  `json:"objective"`
	Vehicles   []string `json:"vehicles"`
	Unservable []string `json:"unservable,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

// DutyStop is one timed stop of a vehicle duty.
type DutyStop struct {
	StopID  string `json:"stop_id"`
	RouteID string `json:"route_id,omitempty"`
	TripID  string `json:"trip_id,omitempty"`
	Arrive  int    `json:"arrive"`
	Depart  int    `json:"depart"`
	Load    int    `json:"load"`
}

// DutyMessage is the payload sent on <prefix>/<depot>/vehicle/<id>.
type DutyMessage struct {
	RunID          string     `json:"run_id"`
	VehicleID      string     `json:"vehicle_id"`
	DepotDeparture int        `json:"depot_departure"`
	DepotArrival   int        `json:"depot_arrival"`
	BreakMinutes   int        `json:"break_minutes"`
	Complete       bool       `json:"complete"`
	Stops          []DutyStop `json:"stops"`
}

// Publisher sends run reports to the broker.
type Publisher struct {
	cli     pahoClient
	cfg     Config
	backoff time.Duration
	log     logger.Logger
}

// NewPublisher connects to the broker described by cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) { log.Warnf("reconnecting to MQTT broker") }

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{cli: c, cfg: cfg, backoff: time.Duration(cfg.BackoffMS) * time.Millisecond, log: log}, nil
}

// SolutionTopic returns the summary topic of a depot.
func (p *Publisher) SolutionTopic(depot string) string {
	return fmt.Sprintf("%s/%s/solution", p.cfg.TopicPrefix, depot)
}

// VehicleTopic returns the duty topic of a vehicle.
func (p *Publisher) VehicleTopic(depot, vehicleID string) string {
	return fmt.Sprintf("%s/%s/vehicle/%s", p.cfg.TopicPrefix, depot, vehicleID)
}

// PublishReport sends the run summary followed by one duty per dispatched
// vehicle, in vehicle id order.
func (p *Publisher) PublishReport(ctx context.Context, rep scheduler.Report) error {
	sum := SolutionMessage{
		RunID:     rep.RunID,
		Depot:     rep.Depot,
		Date:      rep.Date,
		Status:    rep.Solution.Status.String(),
		FleetSize: rep.Solution.FleetSize,
		Objective: rep.Solution.Objective,
		Vehicles:  rep.Solution.VehicleIDs(),
		Timestamp: time.Now().UnixMilli(),
	}
	for _, u := range rep.Solution.Unservable {
		sum.Unservable = append(sum.Unservable, u.Demand.ID)
	}
	if err := p.publish(ctx, p.SolutionTopic(rep.Depot), sum); err != nil {
		return err
	}
	for _, id := range sum.Vehicles {
		if err := p.publish(ctx, p.VehicleTopic(rep.Depot, id), Duty(rep.RunID, rep.Solution.Itineraries[id])); err != nil {
			return err
		}
	}
	return nil
}

// Duty flattens an itinerary into timed stops. Consecutive hops share a
// stop, which is emitted once.
func Duty(runID string, it model.Itinerary) DutyMessage {
	msg := DutyMessage{
		RunID:          runID,
		VehicleID:      it.VehicleID,
		DepotDeparture: it.DepotDeparture,
		DepotArrival:   it.DepotArrival,
		BreakMinutes:   it.BreakMinutes,
		Complete:       it.Complete,
	}
	for i, a := range it.Arcs {
		if a.Kind != model.ArcService || i >= len(it.Times) {
			continue
		}
		load := 0
		if i < len(it.Loads) {
			load = it.Loads[i]
		}
		if n := len(msg.Stops); n == 0 || msg.Stops[n-1].StopID != a.Start.StopID || msg.Stops[n-1].TripID != a.Start.TripID {
			msg.Stops = append(msg.Stops, DutyStop{
				StopID:  a.Start.StopID,
				RouteID: a.Start.RouteID,
				TripID:  a.Start.TripID,
				Arrive:  it.Times[i].Depart,
			})
		}
		last := &msg.Stops[len(msg.Stops)-1]
		last.Depart = it.Times[i].Depart
		last.Load = load
		msg.Stops = append(msg.Stops, DutyStop{
			StopID:  a.End.StopID,
			RouteID: a.End.RouteID,
			TripID:  a.End.TripID,
			Arrive:  it.Times[i].Arrive,
			Depart:  it.Times[i].Arrive,
		})
	}
	return msg
}

// publish retries with exponential backoff and reports the final failure
// to the monitor.
func (p *Publisher) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
retry:
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			p.log.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			publishErr = ctx.Err()
			break retry
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic})
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close gracefully closes the MQTT connection.
func (p *Publisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
