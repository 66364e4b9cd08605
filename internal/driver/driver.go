package driver

import "time"

// StatusSuccess is the status text a driver reports for a successful tag
// operation.
const StatusSuccess = "Success"

// Params are the connection parameters for one controller session.
type Params struct {
	IP       string
	Slot     int
	Timeout  time.Duration
	Micro800 bool
}

// Result is one tag-level outcome.
type Result struct {
	TagName string
	Value   any
	Status  string
}

// TagValue pairs a tag name with the value to write to it.
type TagValue struct {
	Tag   string
	Value any
}

// TagInfo describes one tag from the controller's symbol table.
type TagInfo struct {
	TagName       string
	InstanceID    int
	SymbolType    int
	DataTypeValue int
	DataType      string
	Array         int
	Struct        int
	Size          int
	AccessRight   *int
	Internal      *bool
	Meta          *int
	Scope0        *int
	Scope1        *int
	Bytes         []byte
}

// Identity is an EtherNet/IP device identity, as returned by discovery and
// property queries.
type Identity struct {
	Length               int
	EncapsulationVersion int
	IPAddress            string
	VendorID             int
	Vendor               string
	DeviceID             int
	DeviceType           string
	ProductCode          int
	Revision             string
	Status               int
	SerialNumber         string
	ProductNameLength    int
	ProductName          string
	State                int
}

// Driver is an open session to one controller.
//
// Value shapes by operation:
//   - Read: scalar, or []any when count > 1
//   - GetTime: time.Time, or int64 microseconds since the epoch when raw
//   - SetTime: time.Time that was written
//   - GetTagList, GetProgramTagList: []TagInfo
//   - GetProgramsList: []string
//   - Discover: []Identity
//   - GetModuleProperties, GetDeviceProperties: Identity
//
// A Value may be nil when Status reports a failure.
type Driver interface {
	// Read reads count elements of tag. dataType 0 lets the driver resolve
	// the type itself.
	Read(tag string, count int, dataType int) (Result, error)
	ReadBatch(tags []string) ([]Result, error)

	// Write writes value to tag. dataType 0 lets the driver resolve the type.
	Write(tag string, value any, dataType int) (Result, error)
	WriteBatch(values []TagValue) ([]Result, error)

	ConnectionSize() int
	SetConnectionSize(size int) error

	GetTime(raw bool) (Result, error)
	SetTime() (Result, error)

	GetTagList(allTags bool) (Result, error)
	GetProgramTagList(program string) (Result, error)
	GetProgramsList() (Result, error)

	Discover() (Result, error)
	GetModuleProperties(slot int) (Result, error)
	GetDeviceProperties() (Result, error)

	Close() error
}

// Opener opens a driver session. It is chosen once when the service is
// constructed.
type Opener func(Params) (Driver, error)
