package service

import (
	"strconv"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// plcTimeLayout renders controller time with microsecond precision.
const plcTimeLayout = "2006-01-02 15:04:05.000000"

// tagEntry is the flattened wire shape of one symbol table entry.
type tagEntry struct {
	TagName       string `json:"TagName"`
	InstanceID    int    `json:"InstanceID"`
	SymbolType    int    `json:"SymbolType"`
	DataTypeValue int    `json:"DataTypeValue"`
	DataType      string `json:"DataType"`
	Array         int    `json:"Array"`
	Struct        int    `json:"Struct"`
	Size          int    `json:"Size"`
	AccessRight   *int   `json:"AccessRight"`
	Internal      *bool  `json:"Internal"`
	Meta          *int   `json:"Meta"`
	Scope0        *int   `json:"Scope0"`
	Scope1        *int   `json:"Scope1"`
	Bytes         []int  `json:"Bytes"`
}

// deviceEntry is the flattened wire shape of a device identity.
type deviceEntry struct {
	Length               int     `json:"Length"`
	EncapsulationVersion int     `json:"EncapsulationVersion"`
	IPAddress            string  `json:"IPAddress"`
	VendorID             int     `json:"VendorID"`
	Vendor               string  `json:"Vendor"`
	DeviceID             int     `json:"DeviceID"`
	DeviceType           *string `json:"DeviceType"`
	ProductCode          int     `json:"ProductCode"`
	Revision             string  `json:"Revision"`
	Status               int     `json:"Status"`
	SerialNumber         string  `json:"SerialNumber"`
	ProductNameLength    int     `json:"ProductNameLength"`
	ProductName          string  `json:"ProductName"`
	State                int     `json:"State"`
}

func record(res driver.Result) TagRecord {
	return TagRecord{Name: stringPtr(res.TagName), Value: res.Value, Status: res.Status}
}

func records(results []driver.Result) []TagRecord {
	out := make([]TagRecord, len(results))
	for i, res := range results {
		out[i] = record(res)
	}
	return out
}

func flattenTag(info driver.TagInfo) tagEntry {
	e := tagEntry{
		TagName:       info.TagName,
		InstanceID:    info.InstanceID,
		SymbolType:    info.SymbolType,
		DataTypeValue: info.DataTypeValue,
		DataType:      info.DataType,
		Array:         info.Array,
		Struct:        info.Struct,
		Size:          info.Size,
		AccessRight:   info.AccessRight,
		Internal:      info.Internal,
		Meta:          info.Meta,
		Scope0:        info.Scope0,
		Scope1:        info.Scope1,
	}
	// Bytes travel as a list of integers rather than base64.
	if info.Bytes != nil {
		e.Bytes = make([]int, len(info.Bytes))
		for i, b := range info.Bytes {
			e.Bytes[i] = int(b)
		}
	}
	return e
}

func flattenDevice(id driver.Identity) deviceEntry {
	return deviceEntry{
		Length:               id.Length,
		EncapsulationVersion: id.EncapsulationVersion,
		IPAddress:            id.IPAddress,
		VendorID:             id.VendorID,
		Vendor:               id.Vendor,
		DeviceID:             id.DeviceID,
		DeviceType:           stringPtr(id.DeviceType),
		ProductCode:          id.ProductCode,
		Revision:             id.Revision,
		Status:               id.Status,
		SerialNumber:         id.SerialNumber,
		ProductNameLength:    id.ProductNameLength,
		ProductName:          id.ProductName,
		State:                id.State,
	}
}

// flattenTagValue reshapes a tag-list result value. Drivers may return a
// list, a single entry or nothing.
func flattenTagValue(v any) any {
	switch t := v.(type) {
	case []driver.TagInfo:
		out := make([]tagEntry, len(t))
		for i, info := range t {
			out[i] = flattenTag(info)
		}
		return out
	case driver.TagInfo:
		return flattenTag(t)
	case *driver.TagInfo:
		if t == nil {
			return nil
		}
		return flattenTag(*t)
	default:
		return v
	}
}

// flattenDeviceValue reshapes a discovery or property result value.
func flattenDeviceValue(v any) any {
	switch t := v.(type) {
	case []driver.Identity:
		out := make([]deviceEntry, len(t))
		for i, id := range t {
			out[i] = flattenDevice(id)
		}
		return out
	case driver.Identity:
		return flattenDevice(t)
	case *driver.Identity:
		if t == nil {
			return nil
		}
		return flattenDevice(*t)
	default:
		return v
	}
}

// formatPLCTime renders a get-plc-time value. Raw values are microseconds
// since the epoch rendered as a decimal string.
func formatPLCTime(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(plcTimeLayout)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case nil:
		return nil
	default:
		return v
	}
}

// epochSeconds renders a set-plc-time value.
func epochSeconds(v any) any {
	if t, ok := v.(time.Time); ok {
		return float64(t.UnixMicro()) / 1e6
	}
	return v
}
