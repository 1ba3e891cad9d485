// Package testutil starts disposable backing services for integration tests.
//
// Every helper skips the calling test unless DOCKER_AVAILABLE is "true" or
// "1", and registers container cleanup with t.Cleanup.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// ReadyTimeout bounds how long a started container may take to accept clients.
	ReadyTimeout = 30 * time.Second

	pollInterval = 100 * time.Millisecond
)

// RequireDocker skips t when no docker daemon is advertised.
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("container tests disabled in short mode")
	}
	if v := os.Getenv("DOCKER_AVAILABLE"); v != "true" && v != "1" {
		t.Skip("docker not available")
	}
}

// start runs req and returns host:port of the given exposed port.
func start(t *testing.T, req tc.ContainerRequest, port string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*ReadyTimeout)
	defer cancel()
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := cont.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// StartRedis launches redis and returns its address.
func StartRedis(t *testing.T) string {
	t.Helper()
	RequireDocker(t)
	return start(t, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}, "6379")
}

// StartPostgres launches postgres and returns a lib/pq DSN.
func StartPostgres(t *testing.T) string {
	t.Helper()
	RequireDocker(t)
	addr := start(t, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "roadside",
			"POSTGRES_PASSWORD": "roadside",
			"POSTGRES_DB":       "roadside",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(ReadyTimeout),
	}, "5432")
	return fmt.Sprintf("postgres://roadside:roadside@%s/roadside?sslmode=disable", addr)
}

// Influx bootstrap credentials used by StartInflux.
const (
	InfluxOrg    = "roadside"
	InfluxBucket = "roadside"
	InfluxToken  = "roadside-token"
)

// StartInflux launches InfluxDB 2.7 with InfluxOrg, InfluxBucket and
// InfluxToken already provisioned and returns its base URL.
func StartInflux(t *testing.T) string {
	t.Helper()
	RequireDocker(t)
	addr := start(t, tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "roadside",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "roadside-pass",
			"DOCKER_INFLUXDB_INIT_ORG":         InfluxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      InfluxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": InfluxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(2 * ReadyTimeout),
	}, "8086")
	return "http://" + addr
}

// StartMosquitto launches an anonymous mosquitto broker and returns its URL
// once a client can connect.
func StartMosquitto(t *testing.T) string {
	t.Helper()
	RequireDocker(t)
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		t.Fatalf("write mosquitto.conf: %v", err)
	}
	addr := start(t, tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}, "1883")
	broker := "tcp://" + addr

	ctx, cancel := context.WithTimeout(context.Background(), ReadyTimeout)
	defer cancel()
	if err := waitForMQTT(ctx, broker); err != nil {
		t.Skipf("mosquitto not ready: %v", err)
	}
	return broker
}

func waitForMQTT(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
