package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

func encode(t *testing.T, resp *Response) string {
	t.Helper()
	data, err := resp.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return string(data)
}

func connected(t *testing.T) *harness {
	t.Helper()
	h := newHarness()
	t.Cleanup(h.exec.Stop)
	resp, err := h.process(connectRequest)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if resp.Status() != StatusSuccess {
		t.Fatalf("connect status = %v, want Success", resp.Status())
	}
	return h
}

// mustProcess runs raw through the dispatcher and fails on a returned error.
func (h *harness) mustProcess(t *testing.T, raw string) *Response {
	t.Helper()
	resp, err := h.process(raw)
	if err != nil {
		t.Fatalf("Process(%s) error = %v", raw, err)
	}
	return resp
}

func TestDispatcher_Exchanges(t *testing.T) {
	h := newHarness()
	defer h.exec.Stop()

	tests := []struct {
		name    string
		request string
		want    string
	}{
		{
			name:    "connection size before connect",
			request: `{"command":"get-connection-size","msg":null}`,
			want:    `{"command":"get-connection-size","msg":{"name":null,"value":null,"status":"No Route To Provider"}}`,
		},
		{
			name:    "connect",
			request: connectRequest,
			want:    `{"command":"connect","msg":{"name":null,"value":null,"status":"Success"}}`,
		},
		{
			name:    "scalar read",
			request: `{"command":"read","msg":{"tag":"X","count":1,"datatype":195}}`,
			want:    `{"command":"read","msg":{"name":"X","value":7,"status":"Success"}}`,
		},
		{
			name:    "batch write",
			request: `{"command":"write","msg":[["A",1],["B",2]]}`,
			want:    `{"command":"write","msg":[{"name":"A","value":1,"status":"Success"},{"name":"B","value":2,"status":"Success"}]}`,
		},
		{
			name:    "unknown command",
			request: `{"command":"foo","msg":null}`,
			want:    `{"command":"foo","msg":{"name":null,"value":null,"status":"Unknown Command"}}`,
		},
	}

	// Order matters: each exchange builds on the session left by the previous.
	for _, tt := range tests {
		resp := h.mustProcess(t, tt.request)
		assertJSON(t, tt.want, encode(t, resp))
	}

	if got := h.failures.all(); len(got) != 0 {
		t.Errorf("failures = %v, want none", got)
	}
}

func TestDispatcher_BadFormat(t *testing.T) {
	h := connected(t)

	tests := []struct {
		name     string
		request  string
		wantEcho bool
	}{
		{"not an object", `[1,2,3]`, false},
		{"null envelope", `null`, false},
		{"missing command", `{"msg":null}`, false},
		{"command not a string", `{"command":5,"msg":null}`, false},
		{"missing msg", `{"command":"close"}`, true},
		{"connect missing field", `{"command":"connect","msg":{"ip":"1.2.3.4","slot":0,"timeout":5}}`, true},
		{"connect slot not integer", `{"command":"connect","msg":{"ip":"1.2.3.4","slot":"0","timeout":5,"micro800":false}}`, true},
		{"connect fractional slot", `{"command":"connect","msg":{"ip":"1.2.3.4","slot":1.5,"timeout":5,"micro800":false}}`, true},
		{"connect ip not string", `{"command":"connect","msg":{"ip":10,"slot":0,"timeout":5,"micro800":false}}`, true},
		{"connect msg null", `{"command":"connect","msg":null}`, true},
		{"read missing count", `{"command":"read","msg":{"tag":"X","datatype":null}}`, true},
		{"read list with count", `{"command":"read","msg":{"tag":["A","B"],"count":2,"datatype":null}}`, true},
		{"read list with datatype", `{"command":"read","msg":{"tag":["A"],"count":null,"datatype":195}}`, true},
		{"read list non-string", `{"command":"read","msg":{"tag":["A",1],"count":null,"datatype":null}}`, true},
		{"read tag number", `{"command":"read","msg":{"tag":5,"count":null,"datatype":null}}`, true},
		{"read zero count", `{"command":"read","msg":{"tag":"X","count":0,"datatype":null}}`, true},
		{"write pair too long", `{"command":"write","msg":[["A",1,2]]}`, true},
		{"write pair object value", `{"command":"write","msg":[["A",{"v":1}]]}`, true},
		{"write pair null value", `{"command":"write","msg":[["A",null]]}`, true},
		{"write pair tag not string", `{"command":"write","msg":[[1,1]]}`, true},
		{"write pair value overflows float64", `{"command":"write","msg":[["A",1e400]]}`, true},
		{"write object missing datatype", `{"command":"write","msg":{"tag":"A","value":1}}`, true},
		{"write object value overflows float64", `{"command":"write","msg":{"tag":"A","value":1e400,"datatype":null}}`, true},
		{"write object negative value overflows float64", `{"command":"write","msg":{"tag":"A","value":-1e400,"datatype":202}}`, true},
		{"write array element overflows float64", `{"command":"write","msg":{"tag":"Arr","value":[1,1e400],"datatype":null}}`, true},
		{"write scalar msg", `{"command":"write","msg":"A"}`, true},
		{"get-plc-time raw not bool", `{"command":"get-plc-time","msg":{"raw":1}}`, true},
		{"get-tag-list missing all_tags", `{"command":"get-tag-list","msg":{}}`, true},
		{"get-program-tag-list missing name", `{"command":"get-program-tag-list","msg":{}}`, true},
		{"get-module-properties missing slot", `{"command":"get-module-properties","msg":{}}`, true},
		{"set-connection-size not integer", `{"command":"set-connection-size","msg":{"connection_size":"big"}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.mustProcess(t, tt.request)
			if resp.Status() != StatusBadFormat {
				t.Fatalf("status = %v, want BadFormat", resp.Status())
			}

			want := TagRecord{Status: "Bad Message Format"}
			if !reflect.DeepEqual(resp.Msg, want) {
				t.Errorf("msg = %#v, want %#v", resp.Msg, want)
			}
			if echoed := resp.Command != nil; echoed != tt.wantEcho {
				t.Errorf("command echoed = %t, want %t", echoed, tt.wantEcho)
			}
		})
	}

	if got := h.failures.all(); len(got) != 0 {
		t.Errorf("validation failures must not be reported, got %v", got)
	}
	for _, call := range h.drv.callLog() {
		if strings.HasPrefix(call, "write") {
			t.Errorf("driver called for a rejected write: %q", call)
		}
	}
}

func TestDispatcher_NoConnection(t *testing.T) {
	h := newHarness()
	defer h.exec.Stop()

	requests := []string{
		`{"command":"get-connection-size","msg":null}`,
		`{"command":"read","msg":{"tag":"X","count":1,"datatype":null}}`,
		`{"command":"write","msg":{"tag":"X","value":1,"datatype":null}}`,
		`{"command":"get-plc-time","msg":{"raw":false}}`,
		`{"command":"set-plc-time","msg":null}`,
		`{"command":"get-tag-list","msg":{"all_tags":true}}`,
		`{"command":"get-program-tag-list","msg":{"program_name":"Program:MainProgram"}}`,
		`{"command":"get-programs-list","msg":null}`,
		`{"command":"discover","msg":null}`,
		`{"command":"get-module-properties","msg":{"slot":1}}`,
		`{"command":"get-device-properties","msg":{}}`,
	}

	for _, raw := range requests {
		resp := h.mustProcess(t, raw)
		if resp.Status() != StatusNoConnection {
			t.Errorf("%s: status = %v, want NoConnection", raw, resp.Status())
		}
		if want := (TagRecord{Status: "No Route To Provider"}); !reflect.DeepEqual(resp.Msg, want) {
			t.Errorf("%s: msg = %#v, want %#v", raw, resp.Msg, want)
		}
		if resp.Command == nil {
			t.Errorf("%s: command not echoed", raw)
		}
	}

	if calls := h.drv.callLog(); len(calls) != 0 {
		t.Errorf("driver must not be called without a session, got %v", calls)
	}
	if got := h.failures.all(); len(got) != 0 {
		t.Errorf("failures = %v, want none", got)
	}
}

func TestDispatcher_SetConnectionSizeWithoutSession(t *testing.T) {
	h := newHarness()
	defer h.exec.Stop()

	resp := h.mustProcess(t, `{"command":"set-connection-size","msg":{"connection_size":508}}`)
	assertJSON(t,
		`{"command":"set-connection-size","msg":{"name":null,"value":508,"status":"Success"}}`,
		encode(t, resp))
	if calls := h.drv.callLog(); len(calls) != 0 {
		t.Errorf("driver calls = %v, want none", calls)
	}
}

func TestDispatcher_ConnectionSize(t *testing.T) {
	h := connected(t)
	want := TagRecord{Value: 508, Status: "Success"}

	resp := h.mustProcess(t, `{"command":"set-connection-size","msg":{"connection_size":508}}`)
	if !reflect.DeepEqual(resp.Msg, want) {
		t.Errorf("set msg = %#v, want %#v", resp.Msg, want)
	}

	resp = h.mustProcess(t, `{"command":"get-connection-size","msg":null}`)
	if !reflect.DeepEqual(resp.Msg, want) {
		t.Errorf("get msg = %#v, want %#v", resp.Msg, want)
	}

	if got := h.session.Info().ConnectionSize; got != 508 {
		t.Errorf("session connection size = %d, want 508", got)
	}
}

func TestDispatcher_ConnectParams(t *testing.T) {
	h := newHarness()
	defer h.exec.Stop()

	h.mustProcess(t, `{"command":"connect","msg":{"ip":"10.0.0.9","slot":2,"timeout":1.5,"micro800":true}}`)

	want := []driver.Params{{
		IP:       "10.0.0.9",
		Slot:     2,
		Timeout:  1500 * time.Millisecond,
		Micro800: true,
	}}
	if !reflect.DeepEqual(h.opener.params, want) {
		t.Errorf("opener params = %+v, want %+v", h.opener.params, want)
	}

	info := h.session.Info()
	if info.State != StateConnected || info.IP != "10.0.0.9" || info.ConnectionSize != 4002 {
		t.Errorf("session info = %+v", info)
	}
}

func TestDispatcher_ReconnectReplacesSession(t *testing.T) {
	h := connected(t)

	h.mustProcess(t, `{"command":"connect","msg":{"ip":"10.0.0.6","slot":1,"timeout":5,"micro800":false}}`)

	if got := h.session.Info().IP; got != "10.0.0.6" {
		t.Errorf("session IP = %q, want 10.0.0.6", got)
	}
	if slices.Contains(h.drv.callLog(), "close") {
		t.Error("reconnect must not close the previous handle")
	}
}

func TestDispatcher_CloseLifecycle(t *testing.T) {
	h := connected(t)

	resp := h.mustProcess(t, `{"command":"close","msg":null}`)
	assertJSON(t, `{"command":"close","msg":{"name":null,"value":null,"status":"Success"}}`, encode(t, resp))
	if h.session.Connected() {
		t.Fatal("session still connected after close")
	}

	resp = h.mustProcess(t, `{"command":"read","msg":{"tag":"X","count":1,"datatype":null}}`)
	if resp.Status() != StatusNoConnection {
		t.Errorf("read after close status = %v, want NoConnection", resp.Status())
	}

	// Closing again is still a success.
	resp = h.mustProcess(t, `{"command":"close","msg":null}`)
	if resp.Status() != StatusSuccess {
		t.Errorf("second close status = %v, want Success", resp.Status())
	}
}

func TestDispatcher_CloseDriverErrorStillDisconnects(t *testing.T) {
	h := connected(t)
	h.drv.closeErr = errors.New("forward close rejected")

	resp := h.mustProcess(t, `{"command":"close","msg":null}`)
	if resp.Status() != StatusSuccess {
		t.Errorf("status = %v, want Success", resp.Status())
	}
	if h.session.Connected() {
		t.Error("session still connected")
	}

	failures := h.failures.all()
	if len(failures) != 1 || !errors.Is(failures[0].err, ErrCloseFailed) {
		t.Errorf("failures = %v, want one ErrCloseFailed", failures)
	}
}

func TestDispatcher_ReadShapes(t *testing.T) {
	h := connected(t)

	resp := h.mustProcess(t, `{"command":"read","msg":{"tag":["X","A"],"count":null,"datatype":null}}`)
	assertJSON(t,
		`{"command":"read","msg":[{"name":"X","value":7,"status":"Success"},{"name":"A","value":0,"status":"Success"}]}`,
		encode(t, resp))

	resp = h.mustProcess(t, `{"command":"read","msg":{"tag":"Missing","count":null,"datatype":null}}`)
	if resp.Status() != StatusSuccess {
		t.Errorf("tag-level failures are carried in the record, status = %v", resp.Status())
	}
	assertJSON(t,
		`{"command":"read","msg":{"name":"Missing","value":null,"status":"Path destination unknown"}}`,
		encode(t, resp))

	if !slices.Contains(h.drv.callLog(), "read Missing 1 0") {
		t.Errorf("calls = %v, want a default single-element read", h.drv.callLog())
	}
}

func TestDispatcher_WriteObject(t *testing.T) {
	h := connected(t)

	resp := h.mustProcess(t, `{"command":"write","msg":{"tag":"A","value":2.5,"datatype":202}}`)
	assertJSON(t, `{"command":"write","msg":{"name":"A","value":2.5,"status":"Success"}}`, encode(t, resp))
	if !slices.Contains(h.drv.callLog(), "write A 2.5 202") {
		t.Errorf("calls = %v", h.drv.callLog())
	}

	resp = h.mustProcess(t, `{"command":"write","msg":{"tag":"Arr","value":[1,2,3],"datatype":null}}`)
	if resp.Status() != StatusSuccess {
		t.Errorf("array write status = %v", resp.Status())
	}
}

func TestDispatcher_Time(t *testing.T) {
	h := connected(t)

	resp := h.mustProcess(t, `{"command":"get-plc-time","msg":{"raw":false}}`)
	assertJSON(t,
		`{"command":"get-plc-time","msg":{"name":null,"value":"2024-03-01 12:30:15.123456","status":"Success"}}`,
		encode(t, resp))

	resp = h.mustProcess(t, `{"command":"get-plc-time","msg":{"raw":true}}`)
	if got := resp.Msg.(TagRecord).Value; got != "1709296215123456" {
		t.Errorf("raw time = %v, want 1709296215123456", got)
	}

	resp = h.mustProcess(t, `{"command":"set-plc-time","msg":null}`)
	got, ok := resp.Msg.(TagRecord).Value.(float64)
	if !ok || math.Abs(got-1709296215.123456) > 1e-6 {
		t.Errorf("set time = %v, want epoch seconds 1709296215.123456", resp.Msg.(TagRecord).Value)
	}
}

func TestDispatcher_TagLists(t *testing.T) {
	h := connected(t)

	resp := h.mustProcess(t, `{"command":"get-tag-list","msg":{"all_tags":false}}`)
	assertJSON(t, `{"command":"get-tag-list","msg":{"name":null,"value":[
		{"TagName":"X","InstanceID":1,"SymbolType":196,"DataTypeValue":196,"DataType":"DINT","Array":0,"Struct":0,"Size":4,
		 "AccessRight":null,"Internal":null,"Meta":null,"Scope0":null,"Scope1":null,"Bytes":null},
		{"TagName":"Arr","InstanceID":2,"SymbolType":8387,"DataTypeValue":195,"DataType":"INT","Array":1,"Struct":0,"Size":10,
		 "AccessRight":null,"Internal":null,"Meta":null,"Scope0":null,"Scope1":null,"Bytes":null}
	],"status":"Success"}}`, encode(t, resp))

	resp = h.mustProcess(t, `{"command":"get-program-tag-list","msg":{"program_name":"Program:MainProgram"}}`)
	rec := resp.Msg.(TagRecord)
	if rec.Name == nil || *rec.Name != "Program:MainProgram" {
		t.Errorf("name = %v, want Program:MainProgram", rec.Name)
	}
	entry, ok := rec.Value.(tagEntry)
	if !ok || entry.TagName != "Program:MainProgram.Local" {
		t.Errorf("single entries stay single, got %#v", rec.Value)
	}

	resp = h.mustProcess(t, `{"command":"get-programs-list","msg":null}`)
	assertJSON(t, `{"command":"get-programs-list","msg":{"name":null,"value":["Program:MainProgram"],"status":"Success"}}`, encode(t, resp))
}

func TestDispatcher_DeviceDescriptors(t *testing.T) {
	h := connected(t)

	resp := h.mustProcess(t, `{"command":"discover","msg":null}`)
	assertJSON(t, `{"command":"discover","msg":{"name":null,"value":[{
		"Length":0,"EncapsulationVersion":0,"IPAddress":"10.0.0.5","VendorID":0,
		"Vendor":"Rockwell Automation/Allen-Bradley","DeviceID":0,"DeviceType":null,"ProductCode":0,
		"Revision":"32.11","Status":0,"SerialNumber":"","ProductNameLength":0,"ProductName":"1756-L83E/B","State":0
	}],"status":"Success"}}`, encode(t, resp))

	resp = h.mustProcess(t, `{"command":"get-module-properties","msg":{"slot":1}}`)
	if got := resp.Msg.(TagRecord).Value.(deviceEntry).ProductName; got != "1756-EN2T/D" {
		t.Errorf("module product = %q", got)
	}
	if !slices.Contains(h.drv.callLog(), "get-module-properties 1") {
		t.Errorf("calls = %v", h.drv.callLog())
	}

	resp = h.mustProcess(t, `{"command":"get-device-properties","msg":null}`)
	dev := resp.Msg.(TagRecord).Value.(deviceEntry)
	if dev.DeviceType == nil || *dev.DeviceType != "Programmable Logic Controller" {
		t.Errorf("device type = %v", dev.DeviceType)
	}
}

func TestDispatcher_DriverErrorPropagates(t *testing.T) {
	h := connected(t)
	h.drv.failWith = errors.New("connection reset by peer")

	raw := `{"command":"read","msg":{"tag":"X","count":1,"datatype":null}}`
	resp, err := h.process(raw)
	if err == nil || resp != nil {
		t.Fatalf("Process() = %v, %v; want nil response and an error", resp, err)
	}

	failures := h.failures.all()
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want 1", failures)
	}
	if failures[0].message != "read failed" {
		t.Errorf("message = %q, want %q", failures[0].message, "read failed")
	}
	assertJSON(t, raw, string(failures[0].payload.(json.RawMessage)))
	if !strings.Contains(failures[0].err.Error(), "connection reset by peer") {
		t.Errorf("err = %v", failures[0].err)
	}
}

func TestDispatcher_DriverPanicPropagates(t *testing.T) {
	h := connected(t)
	h.drv.panicWith = "nil pointer in driver"

	if _, err := h.process(`{"command":"get-programs-list","msg":null}`); !errors.Is(err, ErrDriverPanic) {
		t.Fatalf("err = %v, want ErrDriverPanic", err)
	}

	// The worker survives the panic.
	h.drv.panicWith = nil
	if resp := h.mustProcess(t, `{"command":"get-programs-list","msg":null}`); resp.Status() != StatusSuccess {
		t.Errorf("status = %v, want Success", resp.Status())
	}
}

func TestDispatcher_ConnectOpenError(t *testing.T) {
	h := newHarness()
	defer h.exec.Stop()
	h.opener.openErr = errors.New("no route to host")

	if _, err := h.process(connectRequest); err == nil {
		t.Fatal("expected an error")
	}
	if h.session.Connected() {
		t.Error("session connected after a failed open")
	}
	if got := len(h.failures.all()); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
}

func TestDispatcher_AuditsMutatingCommands(t *testing.T) {
	h := connected(t)

	h.mustProcess(t, `{"command":"write","msg":[["A",1],["B",true]]}`)
	h.mustProcess(t, `{"command":"read","msg":{"tag":"A","count":null,"datatype":null}}`)
	h.mustProcess(t, `{"command":"close","msg":null}`)

	h.auditor.mu.Lock()
	defer h.auditor.mu.Unlock()

	var commands []Command
	for _, e := range h.auditor.entries {
		commands = append(commands, e.Command)
	}
	if want := []Command{CommandConnect, CommandWrite, CommandClose}; !slices.Equal(commands, want) {
		t.Errorf("audited = %v, want %v", commands, want)
	}
	if got := h.auditor.entries[1].Tags; !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("write tags = %v, want [A B]", got)
	}
}

func TestDispatcher_AuditFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness()
	defer h.exec.Stop()
	h.auditor.err = errors.New("disk full")

	if resp := h.mustProcess(t, connectRequest); resp.Status() != StatusSuccess {
		t.Errorf("status = %v, want Success", resp.Status())
	}
}

func TestDispatcher_SessionObserver(t *testing.T) {
	h := connected(t)
	h.mustProcess(t, `{"command":"set-connection-size","msg":{"connection_size":508}}`)
	h.mustProcess(t, `{"command":"close","msg":null}`)

	var states []SessionState
	var sizes []int
	for _, info := range h.observer.sessionLog() {
		states = append(states, info.State)
		sizes = append(sizes, info.ConnectionSize)
	}
	if want := []SessionState{StateConnected, StateConnected, StateDisconnected}; !slices.Equal(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
	if want := []int{4002, 508, 0}; !slices.Equal(sizes, want) {
		t.Errorf("connection sizes = %v, want %v", sizes, want)
	}
}

// gateObserver holds the worker inside the first SessionChanged call until
// released.
type gateObserver struct {
	*fakeObserver
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gateObserver) SessionChanged(info SessionInfo) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	g.fakeObserver.SessionChanged(info)
}

func TestDispatcher_SessionChangesObservedInOrder(t *testing.T) {
	exec := NewExecutor()
	defer exec.Stop()

	gate := &gateObserver{
		fakeObserver: &fakeObserver{},
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	session := NewSession(exec, newFakeDriver().asOpener(), gate)
	disp, err := NewDispatcher(DispatcherOptions{Session: session, Failures: &fakeFailures{}, Logger: nopLogger{}})
	if err != nil {
		t.Fatal(err)
	}

	connectTicket := disp.Reserve()
	closeTicket := disp.Reserve()

	closeDone := make(chan error, 1)
	go func() {
		_, err := disp.Process(context.Background(), closeTicket, []byte(`{"command":"close","msg":null}`))
		closeDone <- err
	}()
	connectDone := make(chan error, 1)
	go func() {
		_, err := disp.Process(context.Background(), connectTicket, []byte(connectRequest))
		connectDone <- err
	}()

	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("connect never notified the observer")
	}

	// The close queued behind the connect cannot overtake its notification.
	select {
	case <-closeDone:
		t.Fatal("close finished while the connect notification was pending")
	case <-time.After(50 * time.Millisecond):
	}
	close(gate.release)

	for _, done := range []chan error{connectDone, closeDone} {
		if err := <-done; err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}

	seen := gate.sessionLog()
	if len(seen) != 2 || seen[0].State != StateConnected || seen[1].State != StateDisconnected {
		t.Fatalf("observed sessions = %+v, want connected then disconnected", seen)
	}
	if last, actual := seen[len(seen)-1].State, session.Info().State; last != actual {
		t.Errorf("observers last saw %v, session is %v", last, actual)
	}
}

func TestNewDispatcher_RequiresDependencies(t *testing.T) {
	exec := NewExecutor()
	defer exec.Stop()
	session := NewSession(exec, newFakeDriver().asOpener(), nil)

	tests := []struct {
		name string
		opts DispatcherOptions
	}{
		{"no session", DispatcherOptions{Failures: &fakeFailures{}, Logger: nopLogger{}}},
		{"no failures", DispatcherOptions{Session: session, Logger: nopLogger{}}},
		{"no logger", DispatcherOptions{Session: session, Failures: &fakeFailures{}}},
	}
	for _, tt := range tests {
		if _, err := NewDispatcher(tt.opts); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}
