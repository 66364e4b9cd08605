package logix

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// CIP services and objects addressed directly rather than through the tag
// services.
const (
	svcGetAttributesAll = 0x01
	svcGetAttributeList = 0x03
	svcSetAttributeList = 0x04

	classIdentity  = 0x01
	classWallClock = 0x8B

	// The wall clock object keeps UTC microseconds since the epoch. It is
	// written through attribute 6 and read back through attribute 11.
	attrClockSet = 0x06
	attrClockGet = 0x0B
)

// Status texts for failures detected on this side of the wire.
const (
	StatusTypeMismatch = "Data type mismatch"
	StatusOutOfRange   = "Value out of range"
)

// generalStatus is the text of each CIP general status code.
var generalStatus = map[byte]string{
	0x01: "Connection failure",
	0x02: "Resource unavailable",
	0x03: "Invalid parameter value",
	0x04: "Path segment error",
	0x05: "Path destination unknown",
	0x06: "Partial transfer",
	0x07: "Connection lost",
	0x08: "Service not supported",
	0x09: "Invalid Attribute",
	0x0A: "Attribute list error",
	0x0B: "Already in requested mode/state",
	0x0C: "Object state conflict",
	0x0D: "Object already exists",
	0x0E: "Attribute not settable",
	0x0F: "Privilege violation",
	0x10: "Device state conflict",
	0x11: "Reply data too large",
	0x12: "Fragmentation of a primitive value",
	0x13: "Not enough data",
	0x14: "Attribute not supported",
	0x15: "Too much data",
	0x16: "Object does not exist",
	0x17: "Service fragmentation sequence not in progress",
	0x18: "No stored attribute data",
	0x19: "Store operation failure",
	0x1A: "Routing failure, request packet too large",
	0x1B: "Routing failure, response packet too large",
	0x1C: "Missing attribute list entry data",
	0x1D: "Invalid attribute value list",
	0x1E: "Embedded service error",
	0x1F: "Vendor specific error",
	0x20: "Invalid parameter",
	0x21: "Write-once value or medium already written",
	0x22: "Invalid reply received",
	0x25: "Key failure in path",
	0x26: "Path size invalid",
	0x27: "Unexpected attribute in list",
	0x28: "Invalid Member ID",
	0x29: "Member not settable",
	0x2A: "Group 2 only server general failure",
}

// statusError is a non-zero CIP general status in a reply.
type statusError struct {
	code byte
}

func (e statusError) Error() string {
	if text, ok := generalStatus[e.code]; ok {
		return text
	}
	return fmt.Sprintf("Unknown error 0x%02X", e.code)
}

var errShortReply = errors.New("logix: reply too short")

var vendors = map[uint16]string{
	1: "Rockwell Automation/Allen-Bradley",
}

var deviceTypes = map[uint16]string{
	0x00: "Generic Device (deprecated)",
	0x02: "AC Drive",
	0x03: "Motor Overload",
	0x04: "Limit Switch",
	0x05: "Inductive Proximity Switch",
	0x06: "Photoelectric Sensor",
	0x07: "General Purpose Discrete I/O",
	0x09: "Resolver",
	0x0C: "Communications Adapter",
	0x0E: "Programmable Logic Controller",
	0x10: "Position Controller",
	0x13: "DC Drive",
	0x15: "Contactor",
	0x16: "Motor Starter",
	0x17: "Soft Start",
	0x18: "Human-Machine Interface",
	0x1A: "Mass Flow Controller",
	0x1B: "Pneumatic Valve",
	0x1C: "Vacuum Pressure Gauge",
	0x22: "Encoder",
	0x23: "Safety Discrete I/O Device",
	0x25: "CIP Motion Drive",
	0x2B: "Generic Device (keyable)",
	0x2C: "Managed Switch",
}

// objectPath builds an 8-bit logical class/instance path.
func objectPath(class, instance byte) []byte {
	return []byte{0x20, class, 0x24, instance}
}

// routerPayload strips the message router reply header when present and
// turns a non-zero general status into a statusError.
func routerPayload(service byte, reply []byte) ([]byte, error) {
	if len(reply) < 4 || reply[0] != service|0x80 {
		return reply, nil
	}
	if status := reply[2]; status != 0 {
		return nil, statusError{code: status}
	}
	start := 4 + 2*int(reply[3])
	if start > len(reply) {
		return nil, errShortReply
	}
	return reply[start:], nil
}

func clockReadRequest() []byte {
	return binary.LittleEndian.AppendUint16(
		binary.LittleEndian.AppendUint16(nil, 1), attrClockGet)
}

func clockWriteRequest(t time.Time) []byte {
	b := binary.LittleEndian.AppendUint16(nil, 1)
	b = binary.LittleEndian.AppendUint16(b, attrClockSet)
	return binary.LittleEndian.AppendUint64(b, uint64(t.UnixMicro()))
}

// parseAttributeReply checks the one-entry attribute list reply and returns
// the attribute data.
func parseAttributeReply(payload []byte) ([]byte, error) {
	if len(payload) < 6 {
		return nil, errShortReply
	}
	if status := binary.LittleEndian.Uint16(payload[4:]); status != 0 {
		return nil, statusError{code: byte(status)}
	}
	return payload[6:], nil
}

func parseClock(payload []byte) (int64, error) {
	data, err := parseAttributeReply(payload)
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, errShortReply
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}

// parseIdentity decodes identity object attributes as laid out by Get
// Attributes All and by ListIdentity. The trailing state byte is optional.
func parseIdentity(b []byte) (driver.Identity, error) {
	if len(b) < 15 {
		return driver.Identity{}, errShortReply
	}
	le := binary.LittleEndian

	id := driver.Identity{
		VendorID:    int(le.Uint16(b[0:])),
		DeviceID:    int(le.Uint16(b[2:])),
		ProductCode: int(le.Uint16(b[4:])),
		Revision:    fmt.Sprintf("%d.%d", b[6], b[7]),
		Status:      int(le.Uint16(b[8:])),
		// Serials are shown the way RSLinx shows them.
		SerialNumber:      fmt.Sprintf("0x%08x", le.Uint32(b[10:])),
		ProductNameLength: int(b[14]),
	}

	end := 15 + id.ProductNameLength
	if end > len(b) {
		return driver.Identity{}, errShortReply
	}
	id.ProductName = string(b[15:end])
	if end < len(b) {
		id.State = int(b[end])
	}

	id.Vendor = lookupName(vendors, uint16(id.VendorID))
	id.DeviceType = lookupName(deviceTypes, uint16(id.DeviceID))
	return id, nil
}

func lookupName(names map[uint16]string, code uint16) string {
	if name, ok := names[code]; ok {
		return name
	}
	return "Unknown"
}

// Encapsulation layer constants.
const (
	encapPort       = 44818
	encapHeaderLen  = 24
	cmdListIdentity = 0x63
	itemIdentity    = 0x0C
)

func listIdentityRequest() []byte {
	b := make([]byte, encapHeaderLen)
	binary.LittleEndian.PutUint16(b, cmdListIdentity)
	return b
}

// parseListIdentity decodes a ListIdentity reply datagram.
func parseListIdentity(packet []byte) (driver.Identity, error) {
	le := binary.LittleEndian
	if len(packet) < encapHeaderLen+6 {
		return driver.Identity{}, errShortReply
	}
	if cmd := le.Uint16(packet); cmd != cmdListIdentity {
		return driver.Identity{}, fmt.Errorf("logix: unexpected encapsulation command 0x%02x", cmd)
	}

	items := packet[encapHeaderLen:]
	if le.Uint16(items) == 0 || le.Uint16(items[2:]) != itemIdentity {
		return driver.Identity{}, errors.New("logix: no identity item")
	}
	length := int(le.Uint16(items[4:]))
	item := items[6:]
	// Encapsulation version then a big-endian sockaddr_in.
	if len(item) < length || length < 18 {
		return driver.Identity{}, errShortReply
	}

	id, err := parseIdentity(item[18:length])
	if err != nil {
		return driver.Identity{}, err
	}
	id.Length = length
	id.EncapsulationVersion = int(le.Uint16(item))
	id.IPAddress = net.IP(item[6:10]).String()
	return id, nil
}
