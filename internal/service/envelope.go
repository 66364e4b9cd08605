package service

import "encoding/json"

// TagRecord is the {name, value, status} record carried in "msg".
type TagRecord struct {
	Name   *string `json:"name"`
	Value  any     `json:"value"`
	Status string  `json:"status"`
}

// Response is a response envelope.
//
// Msg holds a TagRecord or a []TagRecord. Command is nil only on the
// listener's ERROR fallback and on envelopes whose command could not be read.
type Response struct {
	Command *string `json:"command,omitempty"`
	Msg     any     `json:"msg"`

	status   Status
	observed string
}

// Status reports how the request was classified.
func (r *Response) Status() Status {
	return r.status
}

// CommandName returns the request's command for logs and metrics, even
// when the envelope does not carry it.
func (r *Response) CommandName() string {
	if r.Command != nil {
		return *r.Command
	}
	return r.observed
}

// Encode renders the envelope as JSON.
func (r *Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

func statusRecord(s Status) TagRecord {
	return TagRecord{Status: s.String()}
}

func newResponse(command *string, msg any, s Status) *Response {
	return &Response{Command: command, Msg: msg, status: s}
}

// errorResponse is the bare ERROR envelope sent when a request fails
// outside validation. command may be nil.
func errorResponse(command *string) *Response {
	return newResponse(command, statusRecord(StatusError), StatusError)
}

// stringPtr returns nil for the empty string.
func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
