package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/logix-service/internal/api"
	"github.com/nerrad567/logix-service/internal/driver"
	"github.com/nerrad567/logix-service/internal/infrastructure/config"
	"github.com/nerrad567/logix-service/internal/infrastructure/logging"
	"github.com/nerrad567/logix-service/internal/infrastructure/mqtt"
	"github.com/nerrad567/logix-service/internal/infrastructure/router"
	"github.com/nerrad567/logix-service/internal/service"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// writeConfig writes a minimal config that keeps every file under dir.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: error
  file:
    path: "` + filepath.Join(dir, "logs", "service.log") + `"
` + extra
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("LOGIX_CONFIG", "")

	f, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if f.configPath != "" || f.address != "" || f.port != 0 || f.simulate {
		t.Errorf("parseFlags() = %+v, want zero values", f)
	}
}

func TestParseFlags_ConfigFromEnv(t *testing.T) {
	t.Setenv("LOGIX_CONFIG", "/etc/logix/config.yaml")

	f, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if f.configPath != "/etc/logix/config.yaml" {
		t.Errorf("configPath = %q, want env value", f.configPath)
	}

	f, err = parseFlags([]string{"--config", "local.yaml"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if f.configPath != "local.yaml" {
		t.Errorf("configPath = %q, want flag to win over env", f.configPath)
	}
}

func TestParseFlags_All(t *testing.T) {
	f, err := parseFlags([]string{
		"--server-address", "0.0.0.0",
		"--server-port", "5555",
		"--simulate",
	})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if f.address != "0.0.0.0" || f.port != 5555 || !f.simulate {
		t.Errorf("parseFlags() = %+v", f)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--verbose"}},
		{"bad port", []string{"--server-port", "http"}},
		{"positional", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFlags(tt.args); err == nil {
				t.Errorf("parseFlags(%v) should fail", tt.args)
			}
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	_, err := parseFlags([]string{"-h"})
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("parseFlags(-h) error = %v, want flag.ErrHelp", err)
	}
}

func TestFlagOptions_OverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
service:
  address: "10.0.0.1"
  port: 6000
  driver: logix
`)

	f := &cliFlags{port: 7000, simulate: true}
	cfg, err := config.Load(path, f.options()...)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Address != "10.0.0.1" {
		t.Errorf("Address = %q, unset flag must keep file value", cfg.Service.Address)
	}
	if cfg.Service.Port != 7000 {
		t.Errorf("Port = %d, want flag value 7000", cfg.Service.Port)
	}
	if !cfg.Service.Simulate {
		t.Error("Simulate should be forced on by the flag")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, []string{"--config", "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

func TestRun_MissingPort(t *testing.T) {
	t.Setenv("LOGIX_SERVER_PORT", "")
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	err := run(context.Background(), []string{"--config", path, "--simulate"})
	if err == nil {
		t.Fatal("run() should fail without a port")
	}
}

func TestRun_UnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
service:
  driver: no-such-driver
`)

	err := run(context.Background(), []string{
		"--config", path,
		"--server-port", strconv.Itoa(freePort(t)),
	})
	if err == nil {
		t.Fatal("run() should fail for an unregistered driver")
	}
	if !strings.Contains(err.Error(), "selecting driver") {
		t.Errorf("run() error = %v, want driver selection error", err)
	}
}

func TestRun_SimulatedStartupAndShutdown(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
database:
  enabled: true
  path: "`+filepath.Join(dir, "data", "audit.db")+`"
`)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, []string{
			"--config", path,
			"--server-address", "127.0.0.1",
			"--server-port", strconv.Itoa(freePort(t)),
			"--simulate",
		})
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not stop after cancellation")
	}

	if _, err := os.Stat(filepath.Join(dir, "data", "audit.db")); err != nil {
		t.Errorf("audit database not created: %v", err)
	}
}

func TestSelectDriver_Simulated(t *testing.T) {
	cfg := &config.Config{Service: config.ServiceConfig{Simulate: true}}
	opener, err := selectDriver(cfg)
	if err != nil {
		t.Fatalf("selectDriver() error = %v", err)
	}
	if opener == nil {
		t.Fatal("selectDriver() returned nil opener")
	}
}

func TestSelectDriver_Logix(t *testing.T) {
	cfg, err := config.Load("", config.WithEndpoint("127.0.0.1", 5555))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Driver != "logix" {
		t.Fatalf("default driver = %q, want logix", cfg.Service.Driver)
	}

	opener, err := selectDriver(cfg)
	if err != nil {
		t.Fatalf("selectDriver() error = %v", err)
	}
	drv, err := opener(driver.Params{IP: "192.0.2.10", Slot: 0, Timeout: time.Second})
	if err != nil {
		t.Fatalf("opening the logix driver must not touch the network: %v", err)
	}
	if err := drv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

type stubCheck struct{ err error }

func (s stubCheck) HealthCheck(context.Context) error { return s.err }

func TestHealthCheck(t *testing.T) {
	ok := map[string]api.HealthChecker{"a": stubCheck{}, "b": stubCheck{}}
	if err := healthCheck(context.Background(), ok); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}

	if err := healthCheck(context.Background(), nil); err != nil {
		t.Errorf("healthCheck(nil) error = %v", err)
	}

	failing := map[string]api.HealthChecker{
		"a":      stubCheck{},
		"influx": stubCheck{err: errors.New("unreachable")},
	}
	err := healthCheck(context.Background(), failing)
	if err == nil {
		t.Fatal("healthCheck() should fail")
	}
	if !strings.Contains(err.Error(), "influx") {
		t.Errorf("healthCheck() error = %v, want backend name", err)
	}
}

// fakeFrames is a scripted frameSocket.
type fakeFrames struct {
	identity []byte
	payload  []byte
	ok       bool
	err      error
	sendErr  error
	sent     [][]byte
}

func (f *fakeFrames) Receive(time.Duration) ([]byte, []byte, bool, error) {
	return f.identity, f.payload, f.ok, f.err
}

func (f *fakeFrames) Send(_, payload []byte) error {
	f.sent = append(f.sent, payload)
	return f.sendErr
}

func TestRouterSocket_Receive(t *testing.T) {
	frames := &fakeFrames{identity: []byte{0, 1}, payload: []byte(`{}`), ok: true}
	msg, ok, err := routerSocket{frames}.Receive(time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Receive() = %v, %v", ok, err)
	}
	if string(msg.Identity) != "\x00\x01" || string(msg.Payload) != "{}" {
		t.Errorf("Receive() message = %+v", msg)
	}

	frames.ok = false
	if _, ok, err = (routerSocket{frames}).Receive(time.Millisecond); ok || err != nil {
		t.Errorf("Receive() on timeout = %v, %v", ok, err)
	}
}

func TestRouterSocket_ClosedTranslates(t *testing.T) {
	frames := &fakeFrames{err: router.ErrClosed, sendErr: router.ErrClosed}
	sock := routerSocket{frames}

	if _, _, err := sock.Receive(time.Millisecond); !errors.Is(err, service.ErrSocketClosed) {
		t.Errorf("Receive() error = %v, want ErrSocketClosed", err)
	}
	if err := sock.Send([]byte("id"), []byte("x")); !errors.Is(err, service.ErrSocketClosed) {
		t.Errorf("Send() error = %v, want ErrSocketClosed", err)
	}

	frames.sendErr = router.ErrSendFailed
	err := sock.Send([]byte("id"), []byte("x"))
	if errors.Is(err, service.ErrSocketClosed) || !errors.Is(err, router.ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed only", err)
	}
}

type fakeInflux struct {
	requests []string
	sessions []string
}

func (f *fakeInflux) WriteRequestMetric(command, status string, _ time.Duration) {
	f.requests = append(f.requests, command+"/"+status)
}

func (f *fakeInflux) WriteSessionEvent(state, ip string, slot, size int) {
	f.sessions = append(f.sessions, state+"/"+ip+"/"+strconv.Itoa(slot)+"/"+strconv.Itoa(size))
}

func TestInfluxObserver(t *testing.T) {
	w := &fakeInflux{}
	obs := influxObserver{client: w}

	obs.RequestHandled("read", service.StatusSuccess, time.Millisecond)
	obs.SessionChanged(service.SessionInfo{
		State:          service.StateConnected,
		IP:             "10.0.0.5",
		Slot:           1,
		ConnectionSize: 508,
	})

	if len(w.requests) != 1 || w.requests[0] != "read/SUCCESS" {
		t.Errorf("requests = %v", w.requests)
	}
	if len(w.sessions) != 1 || w.sessions[0] != "connected/10.0.0.5/1/508" {
		t.Errorf("sessions = %v", w.sessions)
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []string
	err      error
}

func (f *fakePublisher) PublishRetained(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, string(payload))
	return f.err
}

func (f *fakePublisher) Topics() mqtt.Topics {
	return mqtt.Topics{ServiceID: "plc-1"}
}

func (f *fakePublisher) snapshot() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...), append([]string(nil), f.payloads...)
}

func TestSessionPublisher_PublishesLatest(t *testing.T) {
	pub := &fakePublisher{}
	p := newSessionPublisher(pub, logging.Default())

	since := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	p.SessionChanged(service.SessionInfo{State: service.StateDisconnected, Since: since})
	p.SessionChanged(service.SessionInfo{
		State:    service.StateConnected,
		IP:       "10.0.0.5",
		Slot:     2,
		Micro800: true,
		Since:    since,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if topics, _ := pub.snapshot(); len(topics) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("nothing published")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	topics, payloads := pub.snapshot()
	if len(topics) != 1 {
		t.Fatalf("published %d times, want 1 (latest only)", len(topics))
	}
	if topics[0] != "logix/plc-1/session" {
		t.Errorf("topic = %q", topics[0])
	}
	want := `{"state":"connected","ip":"10.0.0.5","slot":2,"micro800":true,"since":"2026-10-19T12:00:00Z"}`
	if payloads[0] != want {
		t.Errorf("payload = %s, want %s", payloads[0], want)
	}
}

func TestSessionPublisher_FlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{err: errors.New("offline")}
	p := newSessionPublisher(pub, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.SessionChanged(service.SessionInfo{State: service.StateDisconnected})

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	topics, payloads := pub.snapshot()
	if len(topics) != 1 {
		t.Fatalf("published %d times, want 1", len(topics))
	}
	if payloads[0] != `{"state":"disconnected","slot":0,"micro800":false}` {
		t.Errorf("payload = %s", payloads[0])
	}
}
