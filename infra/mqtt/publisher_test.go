package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsched/core/model"
	"github.com/kilianp07/fleetsched/core/monitoring"
	"github.com/kilianp07/fleetsched/core/scheduler"
)

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient for tests.
type mockClient struct {
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
	connected   bool
}

func (m *mockClient) IsConnected() bool { return m.connected }
func (m *mockClient) Connect() paho.Token {
	m.connected = true
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.connected = false }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.published = append(m.published, published{topic, qos, retained, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func node(stop string, seq int) model.Node {
	return model.Node{RouteID: "r1", TripID: "t1", TripSequence: 1, StopSequence: seq, StopID: stop}
}

func sampleReport() scheduler.Report {
	a, b, c := node("A", 1), node("B", 2), node("C", 3)
	depot := model.Node{StopID: "D"}
	it := model.Itinerary{
		VehicleID: "v1",
		Arcs: []model.Arc{
			{Start: depot, End: a, Kind: model.ArcDepotStart},
			{Start: a, End: b, Kind: model.ArcService},
			{Start: b, End: c, Kind: model.ArcService},
			{Start: c, End: depot, Kind: model.ArcDepotEnd},
		},
		Times:          []model.ArcTiming{{Depart: 90, Arrive: 100}, {Depart: 100, Arrive: 110}, {Depart: 112, Arrive: 120}, {Depart: 120, Arrive: 130}},
		Loads:          []int{0, 5, 3, 0},
		DepotDeparture: 90,
		DepotArrival:   130,
		Complete:       true,
	}
	return scheduler.Report{
		RunID: "run-1",
		Depot: "D",
		Solution: model.Solution{
			Status:      model.StatusOptimal,
			FleetSize:   1,
			Objective:   1,
			Itineraries: map[string]model.Itinerary{"v1": it},
			Unservable:  []model.UnservableDemand{{Demand: model.PassengerDemand{ID: "late"}}},
		},
	}
}

func TestPublishReport(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", QoS: 1, Retain: true})
	require.NoError(t, err)

	require.NoError(t, p.PublishReport(context.Background(), sampleReport()))
	require.Len(t, mc.published, 2)
	assert.Equal(t, "fleetsched/D/solution", mc.published[0].topic)
	assert.Equal(t, "fleetsched/D/vehicle/v1", mc.published[1].topic)
	assert.Equal(t, byte(1), mc.published[0].qos)
	assert.True(t, mc.published[0].retained)

	var sum SolutionMessage
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &sum))
	assert.Equal(t, "optimal", sum.Status)
	assert.Equal(t, []string{"v1"}, sum.Vehicles)
	assert.Equal(t, []string{"late"}, sum.Unservable)

	p.Close()
	assert.False(t, mc.connected)
}

func TestDuty_MergesSharedStops(t *testing.T) {
	d := Duty("run-1", sampleReport().Solution.Itineraries["v1"])
	assert.Equal(t, []DutyStop{
		{StopID: "A", RouteID: "r1", TripID: "t1", Arrive: 100, Depart: 100, Load: 5},
		{StopID: "B", RouteID: "r1", TripID: "t1", Arrive: 110, Depart: 112, Load: 3},
		{StopID: "C", RouteID: "r1", TripID: "t1", Arrive: 120, Depart: 120},
	}, d.Stops)
	assert.Equal(t, 90, d.DepotDeparture)
	assert.True(t, d.Complete)
}

type recordMonitor struct {
	monitoring.NopMonitor
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}

func TestPublish_RetriesThenCaptures(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, nil}}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	require.NoError(t, p.publish(context.Background(), "t", 1))
	assert.Len(t, mc.published, 2)

	mon := &recordMonitor{}
	prev := monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(prev) })
	mc.publishErrs = []error{fail, fail}
	mc.published = nil
	err = p.publish(context.Background(), "t", 1)
	assert.ErrorIs(t, err, fail)
	assert.Len(t, mc.published, 2)
	assert.Equal(t, "mqtt", mon.tags["module"])
}

func TestPublish_StopsOnContextCancel(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1000})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.publish(ctx, "t", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, mc.published, 1)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Broker: "tcp://x:1883", QoS: 3}.Validate())
	assert.Error(t, Config{Broker: "tcp://x:1883", UseTLS: true}.Validate())

	var c Config
	c.SetDefaults()
	assert.Equal(t, "fleetsched", c.TopicPrefix)
	assert.Equal(t, 3, c.MaxRetries)
}

func TestNewClientOptions(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p", LWTTopic: "lwt", LWTPayload: "bye"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "lwt", opts.WillTopic)
}

func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile, keyFile, caFile = dir+"/cert.pem", dir+"/key.pem", dir+"/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	tlsCfg, err := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}
