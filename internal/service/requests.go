package service

import (
	"encoding/json"

	"github.com/nerrad567/logix-service/internal/driver"
)

// readRequest is either singleRead or batchRead.
type readRequest interface {
	isReadRequest()
}

// singleRead reads count elements of one tag. A nil Count reads one
// element; a nil DataType is sent as 0 so the driver resolves the type.
type singleRead struct {
	Tag      string
	Count    *int
	DataType *int
}

// batchRead reads one element of each tag, in order.
type batchRead struct {
	Tags []string
}

func (singleRead) isReadRequest() {}
func (batchRead) isReadRequest()  {}

// writeRequest is either singleWrite or batchWrite.
type writeRequest interface {
	isWriteRequest()
}

type singleWrite struct {
	Tag      string
	Value    any
	DataType *int
}

type batchWrite struct {
	Values []driver.TagValue
}

func (singleWrite) isWriteRequest() {}
func (batchWrite) isWriteRequest()  {}

// parseRead accepts {tag: string, count: int|null, datatype: int|null} or
// {tag: [string...], count: null, datatype: null}.
func parseRead(msg json.RawMessage) (readRequest, error) {
	f, err := decodeFields(msg, "tag", "count", "datatype")
	if err != nil {
		return nil, err
	}

	switch firstByte(f["tag"]) {
	case '[':
		if !isNull(f["count"]) {
			return nil, invalid("count", "must be null when tag is a list")
		}
		if !isNull(f["datatype"]) {
			return nil, invalid("datatype", "must be null when tag is a list")
		}
		var items []json.RawMessage
		if err := json.Unmarshal(f["tag"], &items); err != nil {
			return nil, invalid("tag", "must be a list of strings")
		}
		tags := make([]string, len(items))
		for i, item := range items {
			if firstByte(item) != '"' || json.Unmarshal(item, &tags[i]) != nil {
				return nil, invalid("tag", "must be a list of strings")
			}
		}
		return batchRead{Tags: tags}, nil

	case '"':
		tag, err := f.string("tag")
		if err != nil {
			return nil, err
		}
		count, err := f.optionalInt("count")
		if err != nil {
			return nil, err
		}
		if count != nil && *count < 1 {
			return nil, invalid("count", "must be at least 1")
		}
		dataType, err := f.optionalInt("datatype")
		if err != nil {
			return nil, err
		}
		return singleRead{Tag: tag, Count: count, DataType: dataType}, nil

	default:
		return nil, invalid("tag", "must be a string or a list of strings")
	}
}

// parseWrite accepts {tag, value, datatype} or [[tag, value], ...] where
// each pair value is a string, number or boolean.
func parseWrite(msg json.RawMessage) (writeRequest, error) {
	switch firstByte(msg) {
	case '[':
		var pairs []json.RawMessage
		if err := json.Unmarshal(msg, &pairs); err != nil {
			return nil, invalid("msg", "must be a list of [tag, value] pairs")
		}
		values := make([]driver.TagValue, len(pairs))
		for i, raw := range pairs {
			tv, err := parsePair(raw)
			if err != nil {
				return nil, err
			}
			values[i] = tv
		}
		return batchWrite{Values: values}, nil

	case '{':
		f, err := decodeFields(msg, "tag", "value", "datatype")
		if err != nil {
			return nil, err
		}
		tag, err := f.string("tag")
		if err != nil {
			return nil, err
		}
		value, err := decodeValue(f["value"])
		if err != nil {
			return nil, err
		}
		if !isWritable(value) {
			return nil, invalid("value", "must be a scalar or a list of scalars")
		}
		dataType, err := f.optionalInt("datatype")
		if err != nil {
			return nil, err
		}
		return singleWrite{Tag: tag, Value: value, DataType: dataType}, nil

	default:
		return nil, invalid("msg", "must be an object or a list of [tag, value] pairs")
	}
}

func parsePair(raw json.RawMessage) (driver.TagValue, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return driver.TagValue{}, invalid("msg", "each pair must be [tag, value]")
	}

	var tag string
	if firstByte(pair[0]) != '"' || json.Unmarshal(pair[0], &tag) != nil {
		return driver.TagValue{}, invalid("msg", "pair tag must be a string")
	}

	value, err := decodeValue(pair[1])
	if err != nil {
		return driver.TagValue{}, err
	}
	if !isScalar(value) {
		return driver.TagValue{}, invalid("msg", "pair value must be a string, number or boolean")
	}
	return driver.TagValue{Tag: tag, Value: value}, nil
}

func isWritable(v any) bool {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return false
		}
		for _, item := range list {
			if !isScalar(item) {
				return false
			}
		}
		return true
	}
	return isScalar(v)
}
