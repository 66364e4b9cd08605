package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// request is one dispatched request.
type request struct {
	command Command
	msg     json.RawMessage
	payload json.RawMessage
	ticket  *Ticket

	// tags names the tags a mutating command touched, for the audit trail.
	tags []string
}

// handlerFunc validates req, runs at most one session operation through
// req.ticket and returns the response msg.
type handlerFunc func(ctx context.Context, req *request) (any, error)

// handler maps every command to its handler.
func (d *Dispatcher) handler(c Command) handlerFunc {
	switch c {
	case CommandConnect:
		return d.handleConnect
	case CommandClose:
		return d.handleClose
	case CommandGetConnectionSize:
		return d.handleGetConnectionSize
	case CommandSetConnectionSize:
		return d.handleSetConnectionSize
	case CommandRead:
		return d.handleRead
	case CommandWrite:
		return d.handleWrite
	case CommandGetPLCTime:
		return d.handleGetPLCTime
	case CommandSetPLCTime:
		return d.handleSetPLCTime
	case CommandGetTagList:
		return d.handleGetTagList
	case CommandGetProgramTagList:
		return d.handleGetProgramTagList
	case CommandGetProgramsList:
		return d.handleGetProgramsList
	case CommandDiscover:
		return d.handleDiscover
	case CommandGetModuleProperties:
		return d.handleGetModuleProperties
	case CommandGetDeviceProperties:
		return d.handleGetDeviceProperties
	}
	return nil
}

var success = TagRecord{Status: StatusSuccess.String()}

func (d *Dispatcher) handleConnect(ctx context.Context, req *request) (any, error) {
	f, err := decodeFields(req.msg, "ip", "slot", "timeout", "micro800")
	if err != nil {
		return nil, err
	}
	ip, err := f.string("ip")
	if err != nil {
		return nil, err
	}
	slot, err := f.int("slot")
	if err != nil {
		return nil, err
	}
	timeout, err := f.number("timeout")
	if err != nil {
		return nil, err
	}
	if timeout < 0 {
		return nil, invalid("timeout", "must not be negative")
	}
	micro800, err := f.bool("micro800")
	if err != nil {
		return nil, err
	}

	params := driver.Params{
		IP:       ip,
		Slot:     slot,
		Timeout:  time.Duration(timeout * float64(time.Second)),
		Micro800: micro800,
	}
	if err := d.session.Connect(ctx, req.ticket, params); err != nil {
		return nil, err
	}
	return success, nil
}

func (d *Dispatcher) handleClose(ctx context.Context, req *request) (any, error) {
	err := d.session.Close(ctx, req.ticket)
	switch {
	case err == nil, errors.Is(err, ErrNoConnection):
		return success, nil
	case errors.Is(err, ErrCloseFailed):
		d.failures.ReportFailure("close failed", req.payload, err)
		return success, nil
	default:
		return nil, err
	}
}

func (d *Dispatcher) handleGetConnectionSize(ctx context.Context, req *request) (any, error) {
	size, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (int, error) {
		return drv.ConnectionSize(), nil
	})
	if err != nil {
		return nil, err
	}
	return TagRecord{Value: size, Status: StatusSuccess.String()}, nil
}

func (d *Dispatcher) handleSetConnectionSize(ctx context.Context, req *request) (any, error) {
	f, err := decodeFields(req.msg, "connection_size")
	if err != nil {
		return nil, err
	}
	size, err := f.int("connection_size")
	if err != nil {
		return nil, err
	}

	err = d.session.SetConnectionSize(ctx, req.ticket, size)
	if err != nil && !errors.Is(err, ErrNoConnection) {
		return nil, err
	}
	return TagRecord{Value: size, Status: StatusSuccess.String()}, nil
}

func (d *Dispatcher) handleRead(ctx context.Context, req *request) (any, error) {
	rr, err := parseRead(req.msg)
	if err != nil {
		return nil, err
	}

	switch r := rr.(type) {
	case batchRead:
		results, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) ([]driver.Result, error) {
			return drv.ReadBatch(r.Tags)
		})
		if err != nil {
			return nil, err
		}
		return records(results), nil

	case singleRead:
		count, dataType := 1, 0
		if r.Count != nil {
			count = *r.Count
		}
		if r.DataType != nil {
			dataType = *r.DataType
		}
		res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
			return drv.Read(r.Tag, count, dataType)
		})
		if err != nil {
			return nil, err
		}
		return record(res), nil
	}
	return nil, invalid("tag", "unsupported read shape")
}

func (d *Dispatcher) handleWrite(ctx context.Context, req *request) (any, error) {
	wr, err := parseWrite(req.msg)
	if err != nil {
		return nil, err
	}

	switch w := wr.(type) {
	case batchWrite:
		for _, tv := range w.Values {
			req.tags = append(req.tags, tv.Tag)
		}
		results, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) ([]driver.Result, error) {
			return drv.WriteBatch(w.Values)
		})
		if err != nil {
			return nil, err
		}
		return records(results), nil

	case singleWrite:
		req.tags = []string{w.Tag}
		dataType := 0
		if w.DataType != nil {
			dataType = *w.DataType
		}
		res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
			return drv.Write(w.Tag, w.Value, dataType)
		})
		if err != nil {
			return nil, err
		}
		return record(res), nil
	}
	return nil, invalid("msg", "unsupported write shape")
}

func (d *Dispatcher) handleGetPLCTime(ctx context.Context, req *request) (any, error) {
	f, err := decodeFields(req.msg, "raw")
	if err != nil {
		return nil, err
	}
	raw, err := f.bool("raw")
	if err != nil {
		return nil, err
	}

	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.GetTime(raw)
	})
	if err != nil {
		return nil, err
	}
	res.Value = formatPLCTime(res.Value)
	return record(res), nil
}

func (d *Dispatcher) handleSetPLCTime(ctx context.Context, req *request) (any, error) {
	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.SetTime()
	})
	if err != nil {
		return nil, err
	}
	res.Value = epochSeconds(res.Value)
	return record(res), nil
}

func (d *Dispatcher) handleGetTagList(ctx context.Context, req *request) (any, error) {
	f, err := decodeFields(req.msg, "all_tags")
	if err != nil {
		return nil, err
	}
	allTags, err := f.bool("all_tags")
	if err != nil {
		return nil, err
	}

	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.GetTagList(allTags)
	})
	if err != nil {
		return nil, err
	}
	res.Value = flattenTagValue(res.Value)
	return record(res), nil
}

func (d *Dispatcher) handleGetProgramTagList(ctx context.Context, req *request) (any, error) {
	f, err := decodeFields(req.msg, "program_name")
	if err != nil {
		return nil, err
	}
	program, err := f.string("program_name")
	if err != nil {
		return nil, err
	}

	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.GetProgramTagList(program)
	})
	if err != nil {
		return nil, err
	}
	res.Value = flattenTagValue(res.Value)
	return record(res), nil
}

func (d *Dispatcher) handleGetProgramsList(ctx context.Context, req *request) (any, error) {
	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.GetProgramsList()
	})
	if err != nil {
		return nil, err
	}
	return record(res), nil
}

func (d *Dispatcher) handleDiscover(ctx context.Context, req *request) (any, error) {
	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.Discover()
	})
	if err != nil {
		return nil, err
	}
	res.Value = flattenDeviceValue(res.Value)
	return record(res), nil
}

func (d *Dispatcher) handleGetModuleProperties(ctx context.Context, req *request) (any, error) {
	f, err := decodeFields(req.msg, "slot")
	if err != nil {
		return nil, err
	}
	slot, err := f.int("slot")
	if err != nil {
		return nil, err
	}

	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.GetModuleProperties(slot)
	})
	if err != nil {
		return nil, err
	}
	res.Value = flattenDeviceValue(res.Value)
	return record(res), nil
}

func (d *Dispatcher) handleGetDeviceProperties(ctx context.Context, req *request) (any, error) {
	res, err := withDriver(ctx, d.session, req.ticket, func(drv driver.Driver) (driver.Result, error) {
		return drv.GetDeviceProperties()
	})
	if err != nil {
		return nil, err
	}
	res.Value = flattenDeviceValue(res.Value)
	return record(res), nil
}
