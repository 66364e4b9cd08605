package simulated

import (
	"fmt"

	"github.com/nerrad567/logix-service/internal/driver"
)

// Conn is one session against a simulated Device.
//
// Like a real driver session it is not safe for concurrent use.
type Conn struct {
	dev            *Device
	params         driver.Params
	connectionSize int
	closed         bool
}

var _ driver.Driver = (*Conn)(nil)

func (c *Conn) check() error {
	if c.closed {
		return driver.ErrClosed
	}
	return nil
}

// Read reads count elements of tag.
func (c *Conn) Read(name string, count int, dataType int) (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	return c.readLocked(name, count, dataType), nil
}

func (c *Conn) readLocked(name string, count int, dataType int) driver.Result {
	if count < 1 {
		count = 1
	}

	t, index, ok := c.dev.lookup(name)
	if !ok {
		return driver.Result{TagName: name, Status: StatusPathUnknown}
	}
	if dataType != 0 && dataType != t.dataType {
		return driver.Result{TagName: name, Status: StatusTypeMismatch}
	}

	if !t.isArray() {
		if index >= 0 {
			return driver.Result{TagName: name, Status: StatusPathSegment}
		}
		if count > 1 {
			return driver.Result{TagName: name, Status: StatusTooManyElement}
		}
		return driver.Result{TagName: name, Value: t.value, Status: driver.StatusSuccess}
	}

	if index < 0 {
		index = 0
	}
	if index+count > len(t.elements) {
		return driver.Result{TagName: name, Status: StatusTooManyElement}
	}
	if count == 1 {
		return driver.Result{TagName: name, Value: t.elements[index], Status: driver.StatusSuccess}
	}

	values := make([]any, count)
	copy(values, t.elements[index:index+count])
	return driver.Result{TagName: name, Value: values, Status: driver.StatusSuccess}
}

// ReadBatch reads each tag in order.
func (c *Conn) ReadBatch(names []string) ([]driver.Result, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	results := make([]driver.Result, len(names))
	for i, name := range names {
		results[i] = c.readLocked(name, 1, 0)
	}
	return results, nil
}

// Write writes value to tag. A []any value writes consecutive array
// elements starting at the addressed index.
func (c *Conn) Write(name string, value any, dataType int) (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	return c.writeLocked(name, value, dataType), nil
}

func (c *Conn) writeLocked(name string, value any, dataType int) driver.Result {
	t, index, ok := c.dev.lookup(name)
	if !ok {
		return driver.Result{TagName: name, Value: value, Status: StatusPathUnknown}
	}
	if dataType != 0 && dataType != t.dataType {
		return driver.Result{TagName: name, Value: value, Status: StatusTypeMismatch}
	}

	values, isList := value.([]any)

	if !t.isArray() {
		if index >= 0 || isList {
			return driver.Result{TagName: name, Value: value, Status: StatusPathSegment}
		}
		v, status := coerce(value, t.dataType)
		if status != "" {
			return driver.Result{TagName: name, Value: value, Status: status}
		}
		t.value = v
		return driver.Result{TagName: name, Value: v, Status: driver.StatusSuccess}
	}

	if index < 0 {
		index = 0
	}
	if !isList {
		values = []any{value}
	}
	if index+len(values) > len(t.elements) {
		return driver.Result{TagName: name, Value: value, Status: StatusTooManyElement}
	}

	coerced := make([]any, len(values))
	for i, raw := range values {
		v, status := coerce(raw, t.dataType)
		if status != "" {
			return driver.Result{TagName: name, Value: value, Status: status}
		}
		coerced[i] = v
	}
	copy(t.elements[index:], coerced)

	if isList {
		return driver.Result{TagName: name, Value: coerced, Status: driver.StatusSuccess}
	}
	return driver.Result{TagName: name, Value: coerced[0], Status: driver.StatusSuccess}
}

// WriteBatch writes each pair in order.
func (c *Conn) WriteBatch(values []driver.TagValue) ([]driver.Result, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	results := make([]driver.Result, len(values))
	for i, tv := range values {
		results[i] = c.writeLocked(tv.Tag, tv.Value, 0)
	}
	return results, nil
}

// ConnectionSize returns the negotiated forward-open size.
func (c *Conn) ConnectionSize() int {
	return c.connectionSize
}

// SetConnectionSize changes the forward-open size used for later requests.
func (c *Conn) SetConnectionSize(size int) error {
	if err := c.check(); err != nil {
		return err
	}
	if size < 1 {
		return fmt.Errorf("simulated: connection size %d out of range", size)
	}
	c.connectionSize = size
	return nil
}

// GetTime reads the controller clock.
func (c *Conn) GetTime(raw bool) (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	now := c.dev.now().Add(c.dev.clockOffset)
	if raw {
		return driver.Result{Value: now.UnixMicro(), Status: driver.StatusSuccess}, nil
	}
	return driver.Result{Value: now, Status: driver.StatusSuccess}, nil
}

// SetTime sets the controller clock to the host clock.
func (c *Conn) SetTime() (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	c.dev.clockOffset = 0
	return driver.Result{Value: c.dev.now(), Status: driver.StatusSuccess}, nil
}

// GetTagList returns controller-scoped tags, plus program-scoped tags when
// allTags is set.
func (c *Conn) GetTagList(allTags bool) (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	tags := make([]driver.TagInfo, 0, len(c.dev.order))
	for _, key := range c.dev.order {
		t := c.dev.tags[key]
		if t.program != "" && !allTags {
			continue
		}
		tags = append(tags, c.dev.tagInfo(t))
	}
	return driver.Result{Value: tags, Status: driver.StatusSuccess}, nil
}

// GetProgramTagList returns the tags scoped to one program.
func (c *Conn) GetProgramTagList(program string) (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	known := false
	for _, p := range c.dev.programs {
		if p == program {
			known = true
			break
		}
	}
	if !known {
		return driver.Result{TagName: program, Status: StatusPathSegment}, nil
	}

	var tags []driver.TagInfo
	for _, key := range c.dev.order {
		t := c.dev.tags[key]
		if t.program == program {
			tags = append(tags, c.dev.tagInfo(t))
		}
	}
	return driver.Result{TagName: program, Value: tags, Status: driver.StatusSuccess}, nil
}

// GetProgramsList returns the program names.
func (c *Conn) GetProgramsList() (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()

	programs := make([]string, len(c.dev.programs))
	copy(programs, c.dev.programs)
	return driver.Result{Value: programs, Status: driver.StatusSuccess}, nil
}

// Discover returns the identity of every device that answered a
// ListIdentity broadcast. Only the simulated controller answers.
func (c *Conn) Discover() (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	id := c.controllerIdentity()
	return driver.Result{Value: []driver.Identity{id}, Status: driver.StatusSuccess}, nil
}

// GetModuleProperties returns the identity of the module in slot.
func (c *Conn) GetModuleProperties(slot int) (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	if c.params.Micro800 {
		return driver.Result{Status: StatusNotSupported}, nil
	}

	id, ok := c.dev.rack[slot]
	if !ok {
		return driver.Result{Status: StatusPathSegment}, nil
	}
	id.IPAddress = c.params.IP
	return driver.Result{Value: id, Status: driver.StatusSuccess}, nil
}

// GetDeviceProperties returns the identity of the connected device.
func (c *Conn) GetDeviceProperties() (driver.Result, error) {
	if err := c.check(); err != nil {
		return driver.Result{}, err
	}
	return driver.Result{Value: c.controllerIdentity(), Status: driver.StatusSuccess}, nil
}

func (c *Conn) controllerIdentity() driver.Identity {
	id := c.dev.rack[0]
	id.IPAddress = c.params.IP
	if c.params.Micro800 {
		id.ProductName = "2080-LC50-24QWB"
		id.ProductNameLength = len(id.ProductName)
		id.Length = id.ProductNameLength + 34
	}
	return id
}

// Close ends the session. Further calls return driver.ErrClosed.
func (c *Conn) Close() error {
	if c.closed {
		return driver.ErrClosed
	}
	c.closed = true
	return nil
}
