package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// assertJSON fails unless want and got decode to the same value.
func assertJSON(t *testing.T, want, got string) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("bad expected JSON %q: %v", want, err)
	}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("reply is not JSON: %v: %s", err, got)
	}
	if !reflect.DeepEqual(w, g) {
		t.Errorf("JSON mismatch\nwant: %s\n got: %s", want, got)
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition never held: %s", msg)
		}
		time.Sleep(time.Millisecond)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type reportedFailure struct {
	message string
	payload any
	err     error
}

type fakeFailures struct {
	mu       sync.Mutex
	failures []reportedFailure
}

func (f *fakeFailures) ReportFailure(message string, payload any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, reportedFailure{message, payload, err})
}

func (f *fakeFailures) all() []reportedFailure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reportedFailure(nil), f.failures...)
}

// fakeDriver records calls and detects overlapping calls.
type fakeDriver struct {
	mu    sync.Mutex
	calls []string

	active    atomic.Int32
	maxActive atomic.Int32
	delay     time.Duration

	connectionSize int
	values         map[string]any
	now            time.Time

	failWith  error
	closeErr  error
	panicWith any
	closed    bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		connectionSize: 4002,
		values:         map[string]any{"X": int64(7), "A": int64(0), "B": int64(0)},
		now:            time.Date(2024, 3, 1, 12, 30, 15, 123456000, time.UTC),
	}
}

func (f *fakeDriver) enter(call string) error {
	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.failWith
}

func (f *fakeDriver) exit() {
	f.active.Add(-1)
}

func (f *fakeDriver) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDriver) Read(tag string, count int, dataType int) (driver.Result, error) {
	defer f.exit()
	if err := f.enter(fmt.Sprintf("read %s %d %d", tag, count, dataType)); err != nil {
		return driver.Result{}, err
	}
	v, ok := f.values[tag]
	if !ok {
		return driver.Result{TagName: tag, Status: "Path destination unknown"}, nil
	}
	return driver.Result{TagName: tag, Value: v, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) ReadBatch(tags []string) ([]driver.Result, error) {
	defer f.exit()
	if err := f.enter(fmt.Sprintf("read-batch %v", tags)); err != nil {
		return nil, err
	}
	out := make([]driver.Result, len(tags))
	for i, tag := range tags {
		out[i] = driver.Result{TagName: tag, Value: f.values[tag], Status: driver.StatusSuccess}
	}
	return out, nil
}

func (f *fakeDriver) Write(tag string, value any, dataType int) (driver.Result, error) {
	defer f.exit()
	if err := f.enter(fmt.Sprintf("write %s %v %d", tag, value, dataType)); err != nil {
		return driver.Result{}, err
	}
	f.values[tag] = value
	return driver.Result{TagName: tag, Value: value, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) WriteBatch(values []driver.TagValue) ([]driver.Result, error) {
	defer f.exit()
	if err := f.enter(fmt.Sprintf("write-batch %d", len(values))); err != nil {
		return nil, err
	}
	out := make([]driver.Result, len(values))
	for i, tv := range values {
		f.values[tv.Tag] = tv.Value
		out[i] = driver.Result{TagName: tv.Tag, Value: tv.Value, Status: driver.StatusSuccess}
	}
	return out, nil
}

func (f *fakeDriver) ConnectionSize() int {
	return f.connectionSize
}

func (f *fakeDriver) SetConnectionSize(size int) error {
	defer f.exit()
	if err := f.enter("set-connection-size"); err != nil {
		return err
	}
	f.connectionSize = size
	return nil
}

func (f *fakeDriver) GetTime(raw bool) (driver.Result, error) {
	defer f.exit()
	if err := f.enter("get-time"); err != nil {
		return driver.Result{}, err
	}
	if raw {
		return driver.Result{Value: f.now.UnixMicro(), Status: driver.StatusSuccess}, nil
	}
	return driver.Result{Value: f.now, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) SetTime() (driver.Result, error) {
	defer f.exit()
	if err := f.enter("set-time"); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{Value: f.now, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) GetTagList(allTags bool) (driver.Result, error) {
	defer f.exit()
	if err := f.enter(fmt.Sprintf("get-tag-list %t", allTags)); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{Value: []driver.TagInfo{
		{TagName: "X", InstanceID: 1, SymbolType: 0xC4, DataTypeValue: 0xC4, DataType: "DINT", Size: 4},
		{TagName: "Arr", InstanceID: 2, SymbolType: 0x20C3, DataTypeValue: 0xC3, DataType: "INT", Array: 1, Size: 10},
	}, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) GetProgramTagList(program string) (driver.Result, error) {
	defer f.exit()
	if err := f.enter("get-program-tag-list " + program); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{TagName: program, Value: driver.TagInfo{TagName: program + ".Local", DataType: "DINT"}, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) GetProgramsList() (driver.Result, error) {
	defer f.exit()
	if err := f.enter("get-programs-list"); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{Value: []string{"Program:MainProgram"}, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) Discover() (driver.Result, error) {
	defer f.exit()
	if err := f.enter("discover"); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{Value: []driver.Identity{
		{IPAddress: "10.0.0.5", Vendor: "Rockwell Automation/Allen-Bradley", ProductName: "1756-L83E/B", Revision: "32.11"},
	}, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) GetModuleProperties(slot int) (driver.Result, error) {
	defer f.exit()
	if err := f.enter(fmt.Sprintf("get-module-properties %d", slot)); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{Value: driver.Identity{ProductName: "1756-EN2T/D"}, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) GetDeviceProperties() (driver.Result, error) {
	defer f.exit()
	if err := f.enter("get-device-properties"); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{Value: driver.Identity{ProductName: "1756-L83E/B", DeviceType: "Programmable Logic Controller"}, Status: driver.StatusSuccess}, nil
}

func (f *fakeDriver) Close() error {
	defer f.exit()
	if err := f.enter("close"); err != nil {
		return err
	}
	f.closed = true
	return f.closeErr
}

// fakeOpener hands out drv on every connect and records the params.
type fakeOpener struct {
	mu      sync.Mutex
	drv     *fakeDriver
	params  []driver.Params
	openErr error
}

func (o *fakeOpener) open(p driver.Params) (driver.Driver, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.params = append(o.params, p)
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.drv, nil
}

type recordedRequest struct {
	command string
	status  Status
}

type fakeObserver struct {
	mu       sync.Mutex
	requests []recordedRequest
	sessions []SessionInfo
}

func (o *fakeObserver) RequestHandled(command string, status Status, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, recordedRequest{command, status})
}

func (o *fakeObserver) SessionChanged(info SessionInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = append(o.sessions, info)
}

func (o *fakeObserver) sessionLog() []SessionInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]SessionInfo(nil), o.sessions...)
}

func (o *fakeObserver) requestLog() []recordedRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]recordedRequest(nil), o.requests...)
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (a *fakeAuditor) Record(_ context.Context, entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return a.err
}

// harness wires a dispatcher around a fake driver.
type harness struct {
	exec     *Executor
	session  *Session
	disp     *Dispatcher
	drv      *fakeDriver
	opener   *fakeOpener
	failures *fakeFailures
	observer *fakeObserver
	auditor  *fakeAuditor
}

func newHarness() *harness {
	h := &harness{
		exec:     NewExecutor(),
		drv:      newFakeDriver(),
		failures: &fakeFailures{},
		observer: &fakeObserver{},
		auditor:  &fakeAuditor{},
	}
	h.opener = &fakeOpener{drv: h.drv}
	h.session = NewSession(h.exec, h.opener.open, h.observer)

	disp, err := NewDispatcher(DispatcherOptions{
		Session:  h.session,
		Failures: h.failures,
		Logger:   nopLogger{},
		Auditor:  h.auditor,
	})
	if err != nil {
		panic(err)
	}
	h.disp = disp
	return h
}

func (h *harness) process(raw string) (*Response, error) {
	return h.disp.Process(context.Background(), h.disp.Reserve(), []byte(raw))
}

const connectRequest = `{"command":"connect","msg":{"ip":"10.0.0.5","slot":0,"timeout":5,"micro800":false}}`

func (f *fakeDriver) asOpener() driver.Opener {
	return func(driver.Params) (driver.Driver, error) { return f, nil }
}
