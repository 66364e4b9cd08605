package logix

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

const (
	// defaultConnectionSize asks for a large forward open.
	defaultConnectionSize = 4002
	maxConnectionSize     = 4002

	// discoverWindow is how long Discover collects ListIdentity answers.
	discoverWindow = time.Second
)

func init() {
	driver.Register("logix", Open)
}

// Session is one controller session. Like every driver.Driver it is not
// safe for concurrent use.
type Session struct {
	params   driver.Params
	dial     dialFunc
	discover discoverFunc
	now      func() time.Time

	conn           transport
	connected      bool
	connectionSize int
	closed         bool
}

var _ driver.Driver = (*Session)(nil)

// Open prepares a session for p without touching the network. It
// satisfies driver.Opener.
func Open(p driver.Params) (driver.Driver, error) {
	return newSession(p, dialGologix, broadcastListIdentity)
}

func newSession(p driver.Params, dial dialFunc, discover discoverFunc) (*Session, error) {
	if p.IP == "" {
		return nil, errors.New("logix: controller IP is required")
	}
	if p.Slot < 0 {
		return nil, fmt.Errorf("logix: slot %d out of range", p.Slot)
	}

	s := &Session{
		params:         p,
		dial:           dial,
		discover:       discover,
		now:            time.Now,
		connectionSize: defaultConnectionSize,
	}
	conn, err := dial(p.IP, route(p, p.Slot), p.Timeout, s.connectionSize)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// route is the backplane path to slot. Micro800 controllers are addressed
// directly.
func route(p driver.Params, slot int) string {
	if p.Micro800 {
		return ""
	}
	return "1," + strconv.Itoa(slot)
}

// ensure connects on first use and after a dropped socket.
func (s *Session) ensure() error {
	if s.closed {
		return driver.ErrClosed
	}
	if s.connected {
		return nil
	}
	if err := s.conn.Connect(); err != nil {
		return fmt.Errorf("logix: connecting to %s: %w", s.params.IP, err)
	}
	s.connected = true
	return nil
}

// dropped reports whether err broke the socket, and forgets the
// connection when it did so the next call reconnects.
func (s *Session) dropped(err error) bool {
	if !isTransport(err) {
		return false
	}
	_ = s.conn.Disconnect()
	s.connected = false
	return true
}

func isTransport(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// outcome turns a tag-level failure into Result.Status and returns
// transport failures as errors.
func (s *Session) outcome(op, tag string, value any, err error) (driver.Result, error) {
	if err == nil {
		return driver.Result{TagName: tag, Value: value, Status: driver.StatusSuccess}, nil
	}
	if s.dropped(err) {
		if tag != "" {
			op += " " + tag
		}
		return driver.Result{}, fmt.Errorf("logix: %s: %w", op, err)
	}
	return driver.Result{TagName: tag, Value: value, Status: err.Error()}, nil
}

// Read reads count elements of tag.
func (s *Session) Read(tag string, count int, dataType int) (driver.Result, error) {
	if err := s.ensure(); err != nil {
		return driver.Result{}, err
	}
	return s.read(tag, count, dataType)
}

func (s *Session) read(tag string, count int, dataType int) (driver.Result, error) {
	if count < 1 {
		count = 1
	}
	v, err := s.conn.ReadTag(tag, uint16(dataType), count)
	if err != nil {
		return s.outcome("read", tag, nil, err)
	}

	value := plain(v)
	if values, ok := value.([]any); ok && count == 1 && len(values) == 1 {
		value = values[0]
	}
	return s.outcome("read", tag, value, nil)
}

// ReadBatch reads each tag in order.
func (s *Session) ReadBatch(tags []string) ([]driver.Result, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	results := make([]driver.Result, len(tags))
	for i, tag := range tags {
		res, err := s.read(tag, 1, 0)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// Write writes value to tag. With dataType 0 the tag is read first to
// learn its type.
func (s *Session) Write(tag string, value any, dataType int) (driver.Result, error) {
	if err := s.ensure(); err != nil {
		return driver.Result{}, err
	}
	return s.write(tag, value, dataType)
}

func (s *Session) write(tag string, value any, dataType int) (driver.Result, error) {
	cipType := uint16(dataType)
	if cipType == 0 {
		current, err := s.conn.ReadTag(tag, 0, 1)
		if err != nil {
			return s.outcome("write", tag, value, err)
		}
		t, ok := typeOfValue(current)
		if !ok {
			return driver.Result{TagName: tag, Value: value, Status: StatusTypeMismatch}, nil
		}
		cipType = t
	}

	v, status := typed(value, cipType)
	if status != "" {
		return driver.Result{TagName: tag, Value: value, Status: status}, nil
	}
	return s.outcome("write", tag, value, s.conn.WriteTag(tag, v))
}

// WriteBatch writes each pair in order.
func (s *Session) WriteBatch(values []driver.TagValue) ([]driver.Result, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	results := make([]driver.Result, len(values))
	for i, tv := range values {
		res, err := s.write(tv.Tag, tv.Value, 0)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// ConnectionSize returns the forward-open size used for the next connect.
func (s *Session) ConnectionSize() int {
	return s.connectionSize
}

// SetConnectionSize changes the forward-open size. An open connection is
// dropped so the next call negotiates the new size.
func (s *Session) SetConnectionSize(size int) error {
	if s.closed {
		return driver.ErrClosed
	}
	if size < 1 || size > maxConnectionSize {
		return fmt.Errorf("logix: connection size %d out of range 1-%d", size, maxConnectionSize)
	}
	s.connectionSize = size
	s.conn.SetConnectionSize(size)
	if s.connected {
		_ = s.conn.Disconnect()
		s.connected = false
	}
	return nil
}

// request sends an explicit message to class/instance and returns the
// reply data.
func (s *Session) request(service, class, instance byte, data []byte) ([]byte, error) {
	reply, err := s.conn.Request(service, objectPath(class, instance), data)
	if err != nil {
		return nil, err
	}
	return routerPayload(service, reply)
}

// GetTime reads the controller wall clock.
func (s *Session) GetTime(raw bool) (driver.Result, error) {
	if err := s.ensure(); err != nil {
		return driver.Result{}, err
	}
	payload, err := s.request(svcGetAttributeList, classWallClock, 1, clockReadRequest())
	if err != nil {
		return s.outcome("get time", "", nil, err)
	}
	us, err := parseClock(payload)
	if err != nil {
		return s.outcome("get time", "", nil, err)
	}
	if raw {
		return s.outcome("get time", "", us, nil)
	}
	return s.outcome("get time", "", time.UnixMicro(us).UTC(), nil)
}

// SetTime sets the controller wall clock to the host clock.
func (s *Session) SetTime() (driver.Result, error) {
	if err := s.ensure(); err != nil {
		return driver.Result{}, err
	}
	now := s.now().UTC()
	payload, err := s.request(svcSetAttributeList, classWallClock, 1, clockWriteRequest(now))
	if err == nil {
		_, err = parseAttributeReply(payload)
	}
	if err != nil {
		return s.outcome("set time", "", nil, err)
	}
	return s.outcome("set time", "", now, nil)
}

// GetTagList lists controller-scoped tags, and program-scoped tags as well
// when allTags is set.
func (s *Session) GetTagList(allTags bool) (driver.Result, error) {
	syms, res, err := s.symbols()
	if syms == nil {
		return res, err
	}
	tags := make([]driver.TagInfo, 0, len(syms))
	for _, sym := range syms {
		if _, scoped := programOf(sym.Name); scoped && !allTags {
			continue
		}
		tags = append(tags, tagInfo(sym))
	}
	return driver.Result{Value: tags, Status: driver.StatusSuccess}, nil
}

// GetProgramTagList lists the tags scoped to program.
func (s *Session) GetProgramTagList(program string) (driver.Result, error) {
	syms, res, err := s.symbols()
	if syms == nil {
		res.TagName = program
		return res, err
	}

	var tags []driver.TagInfo
	for _, sym := range syms {
		if p, ok := programOf(sym.Name); ok && strings.EqualFold(p, program) {
			tags = append(tags, tagInfo(sym))
		}
	}
	if tags == nil {
		return driver.Result{TagName: program, Status: statusError{code: 0x05}.Error()}, nil
	}
	return driver.Result{TagName: program, Value: tags, Status: driver.StatusSuccess}, nil
}

// GetProgramsList lists the controller's programs.
func (s *Session) GetProgramsList() (driver.Result, error) {
	syms, res, err := s.symbols()
	if syms == nil {
		return res, err
	}

	programs := []string{}
	seen := make(map[string]bool)
	for _, sym := range syms {
		p, ok := programOf(sym.Name)
		if !ok {
			// The program symbols themselves are listed as "Program:Name".
			if strings.HasPrefix(sym.Name, programPrefix) {
				p, ok = sym.Name, true
			}
		}
		if ok && !seen[strings.ToLower(p)] {
			seen[strings.ToLower(p)] = true
			programs = append(programs, p)
		}
	}
	return driver.Result{Value: programs, Status: driver.StatusSuccess}, nil
}

// symbols fetches the user-visible symbol table. When it returns nil
// symbols, the Result and error are the call's outcome.
func (s *Session) symbols() ([]symbol, driver.Result, error) {
	if err := s.ensure(); err != nil {
		return nil, driver.Result{}, err
	}
	all, err := s.conn.Symbols()
	if err != nil {
		res, err := s.outcome("list tags", "", nil, err)
		return nil, res, err
	}

	syms := make([]symbol, 0, len(all))
	for _, sym := range all {
		if userSymbol(sym.Name) {
			syms = append(syms, sym)
		}
	}
	return syms, driver.Result{}, nil
}

const programPrefix = "Program:"

// programOf returns the program a "Program:Name.Tag" symbol belongs to.
func programOf(name string) (string, bool) {
	if !strings.HasPrefix(name, programPrefix) {
		return "", false
	}
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return "", false
	}
	return name[:dot], true
}

// userSymbol drops system tags and module-defined tags such as "Local:1:I".
func userSymbol(name string) bool {
	if strings.Contains(name, "__") {
		return false
	}
	if strings.HasPrefix(name, programPrefix) {
		return true
	}
	return !strings.Contains(name, ":")
}

func tagInfo(sym symbol) driver.TagInfo {
	dims := 0
	for _, d := range sym.Dims {
		if d > 0 {
			dims++
		}
	}

	base := sym.Type & 0x0FFF
	info := driver.TagInfo{
		TagName:       sym.Name,
		InstanceID:    sym.Instance,
		SymbolType:    int(sym.Type) | dims<<13,
		DataTypeValue: int(base),
		DataType:      typeNames[base],
		Array:         dims,
		Size:          typeSizes[base],
	}
	if sym.Type&0x8000 != 0 {
		info.Struct = 1
	}
	if dims > 0 {
		info.Size = sym.Dims[0]
	}
	return info
}

// Discover broadcasts ListIdentity on the local network. It does not need
// the controller connection.
func (s *Session) Discover() (driver.Result, error) {
	if s.closed {
		return driver.Result{}, driver.ErrClosed
	}
	window := discoverWindow
	if s.params.Timeout > 0 && s.params.Timeout < window {
		window = s.params.Timeout
	}
	ids, err := s.discover(window)
	if err != nil {
		return driver.Result{}, fmt.Errorf("logix: discover: %w", err)
	}
	return driver.Result{Value: ids, Status: driver.StatusSuccess}, nil
}

// GetModuleProperties reads the identity of the module in slot through a
// separate connection routed to that slot.
func (s *Session) GetModuleProperties(slot int) (driver.Result, error) {
	if s.closed {
		return driver.Result{}, driver.ErrClosed
	}
	if s.params.Micro800 {
		return driver.Result{Status: statusError{code: 0x08}.Error()}, nil
	}

	conn, err := s.dial(s.params.IP, route(s.params, slot), s.params.Timeout, s.connectionSize)
	if err != nil {
		return driver.Result{}, err
	}
	if err := conn.Connect(); err != nil {
		if isTransport(err) {
			return driver.Result{}, fmt.Errorf("logix: connecting to slot %d: %w", slot, err)
		}
		return driver.Result{Status: err.Error()}, nil
	}
	defer func() { _ = conn.Disconnect() }()

	reply, err := conn.Request(svcGetAttributesAll, objectPath(classIdentity, 1), nil)
	if err == nil {
		reply, err = routerPayload(svcGetAttributesAll, reply)
	}
	if err != nil {
		if isTransport(err) {
			return driver.Result{}, fmt.Errorf("logix: module properties for slot %d: %w", slot, err)
		}
		return driver.Result{Status: err.Error()}, nil
	}
	return s.identity(reply)
}

// GetDeviceProperties reads the identity of the connected device.
func (s *Session) GetDeviceProperties() (driver.Result, error) {
	if err := s.ensure(); err != nil {
		return driver.Result{}, err
	}
	payload, err := s.request(svcGetAttributesAll, classIdentity, 1, nil)
	if err != nil {
		return s.outcome("device properties", "", nil, err)
	}
	return s.identity(payload)
}

func (s *Session) identity(payload []byte) (driver.Result, error) {
	id, err := parseIdentity(payload)
	if err != nil {
		return driver.Result{Status: err.Error()}, nil
	}
	id.IPAddress = s.params.IP
	return driver.Result{Value: id, Status: driver.StatusSuccess}, nil
}

// Close disconnects. Further calls return driver.ErrClosed.
func (s *Session) Close() error {
	if s.closed {
		return driver.ErrClosed
	}
	s.closed = true
	if !s.connected {
		return nil
	}
	s.connected = false
	if err := s.conn.Disconnect(); err != nil {
		return fmt.Errorf("logix: disconnecting from %s: %w", s.params.IP, err)
	}
	return nil
}
