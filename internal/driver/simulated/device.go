package simulated

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// defaultConnectionSize matches the large forward-open size Logix firmware
// negotiates by default.
const defaultConnectionSize = 4002

// MainProgram is the single program in the simulated controller.
const MainProgram = "Program:MainProgram"

// tag is one symbol in the simulated controller.
type tag struct {
	name       string
	dataType   int
	value      any   // scalar tags
	elements   []any // array tags, nil for scalars
	instanceID int
	program    string
}

func (t *tag) isArray() bool {
	return t.elements != nil
}

// Device is the shared state of one simulated controller.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Device struct {
	mu          sync.Mutex
	tags        map[string]*tag
	order       []string
	programs    []string
	clockOffset time.Duration
	rack        map[int]driver.Identity
	now         func() time.Time
}

// NewDevice returns a simulated controller seeded with sample tags.
func NewDevice() *Device {
	d := &Device{
		tags:     make(map[string]*tag),
		programs: []string{MainProgram},
		now:      time.Now,
	}

	d.addTag("BaseBOOL", TypeBOOL, false, "")
	d.addTag("BaseSINT", TypeSINT, int64(0), "")
	d.addTag("BaseINT", TypeINT, int64(0), "")
	d.addTag("BaseDINT", TypeDINT, int64(0), "")
	d.addTag("BaseLINT", TypeLINT, int64(0), "")
	d.addTag("BaseREAL", TypeREAL, float64(0), "")
	d.addTag("BaseSTRING", TypeSTRING, "", "")

	arr := make([]any, 10)
	for i := range arr {
		arr[i] = int64(i)
	}
	d.addArray("BaseINTArray", TypeINT, arr, "")

	d.addTag(MainProgram+".LocalDINT", TypeDINT, int64(0), MainProgram)

	d.rack = map[int]driver.Identity{
		0: newIdentity("1756-L83E/B", 14, "Programmable Logic Controller", 166, "32.11", "0x60c0ffee"),
		1: newIdentity("1756-EN2T/D", 12, "Communications Adapter", 166, "11.2", "0x60c0ff01"),
		2: newIdentity("1756-IB16/A", 7, "Generic Device", 14, "3.1", "0x60c0ff02"),
	}

	return d
}

func newIdentity(product string, deviceID int, deviceType string, code int, revision, serial string) driver.Identity {
	return driver.Identity{
		Length:               len(product) + 34,
		EncapsulationVersion: 1,
		VendorID:             1,
		Vendor:               "Rockwell Automation/Allen-Bradley",
		DeviceID:             deviceID,
		DeviceType:           deviceType,
		ProductCode:          code,
		Revision:             revision,
		Status:               0x3060,
		SerialNumber:         serial,
		ProductNameLength:    len(product),
		ProductName:          product,
		State:                3,
	}
}

func (d *Device) addTag(name string, dataType int, value any, program string) {
	d.tags[strings.ToLower(name)] = &tag{
		name:       name,
		dataType:   dataType,
		value:      value,
		instanceID: len(d.order) + 1,
		program:    program,
	}
	d.order = append(d.order, strings.ToLower(name))
}

func (d *Device) addArray(name string, dataType int, elements []any, program string) {
	d.addTag(name, dataType, nil, program)
	d.tags[strings.ToLower(name)].elements = elements
}

// SetClock overrides the time source. Intended for tests.
func (d *Device) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// AdjustClock shifts the controller clock away from the host clock.
func (d *Device) AdjustClock(offset time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clockOffset += offset
}

// Open starts a session against the device. It satisfies driver.Opener.
func (d *Device) Open(p driver.Params) (driver.Driver, error) {
	return &Conn{
		dev:            d,
		params:         p,
		connectionSize: defaultConnectionSize,
	}, nil
}

// lookup resolves "Name" or "Name[i]" to the tag and element index.
// index is -1 when no element was addressed.
func (d *Device) lookup(name string) (*tag, int, bool) {
	base := name
	index := -1

	if open := strings.IndexByte(name, '['); open > 0 && strings.HasSuffix(name, "]") {
		i, err := strconv.Atoi(name[open+1 : len(name)-1])
		if err != nil || i < 0 {
			return nil, 0, false
		}
		base = name[:open]
		index = i
	}

	t, ok := d.tags[strings.ToLower(base)]
	if !ok {
		return nil, 0, false
	}
	return t, index, true
}

func (d *Device) tagInfo(t *tag) driver.TagInfo {
	info := driver.TagInfo{
		TagName:       t.name,
		InstanceID:    t.instanceID,
		SymbolType:    t.dataType,
		DataTypeValue: t.dataType,
		DataType:      typeNames[t.dataType],
		Size:          typeSizes[t.dataType],
	}
	if t.isArray() {
		info.Array = 1
		info.Size = len(t.elements)
		info.SymbolType |= 0x2000
	}
	return info
}
