// Package util holds fixtures and helpers shared by tests.
package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// brokerConf accepts anonymous clients and keeps no retained messages on disk.
const brokerConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
`

// Broker is a throwaway Mosquitto container used by publisher tests.
type Broker struct {
	URL  string
	cont tc.Container
}

// Close terminates the container.
func (b *Broker) Close() {
	_ = b.cont.Terminate(context.Background())
}

// StartBroker runs Mosquitto in Docker and blocks until a client can
// connect or ctx expires.
func StartBroker(ctx context.Context) (*Broker, error) {
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			Reader:            strings.NewReader(brokerConf),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return nil, fmt.Errorf("start mosquitto: %w", err)
	}
	b := &Broker{cont: cont}
	endpoint, err := cont.PortEndpoint(ctx, "1883/tcp", "tcp")
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("mosquitto endpoint: %w", err)
	}
	b.URL = endpoint
	if err := b.awaitClients(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// awaitClients retries a connect until it succeeds. The port can be open
// before the broker has loaded its config.
func (b *Broker) awaitClients(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(b.URL).
		SetClientID("fleetsched-readiness").
		SetConnectTimeout(time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		cli := paho.NewClient(opts)
		if tok := cli.Connect(); tok.Wait() && tok.Error() == nil {
			cli.Disconnect(50)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("mosquitto at %s not accepting clients: %w", b.URL, ctx.Err())
		case <-tick.C:
		}
	}
}
