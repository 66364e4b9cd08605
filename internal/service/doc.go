// Package service is the request-dispatch core of the Logix service.
//
// It turns JSON request envelopes received over an identity-addressed
// socket into calls against a single controller session and turns the
// results back into JSON response envelopes.
//
// # Components
//
//   - Listener: owns the receive loop. It validates that each payload is
//     UTF-8 JSON, reserves the request's place in the driver queue, hands the
//     request to its own goroutine and sends replies back to the originating
//     client identity.
//   - Dispatcher: classifies an envelope (BAD_FORMAT, UNKNOWN), runs the
//     command's handler and shapes the response.
//   - Session: the controller session actor. Its state is only touched on
//     the executor's worker goroutine, which also delivers SessionChanged.
//   - Executor: one worker goroutine. Every driver call runs there, one at a
//     time, in the order the listener received the requests.
//
// # Status classification
//
//	BAD_FORMAT     envelope or field validation failed; never logged
//	UNKNOWN        command is not in the command set
//	NO_CONNECTION  no session; a normal outcome, not an error
//	ERROR          a driver or runtime failure; reported to the failure
//	               log and answered with a bare envelope by the listener
//
// # Wire format
//
// Request:
//
//	{"command": "read", "msg": {"tag": "X", "count": 1, "datatype": 195}}
//
// Response:
//
//	{"command": "read", "msg": {"name": "X", "value": 7, "status": "Success"}}
//
// A list result carries a list of records in "msg". The ERROR fallback
// omits "command" unless Listener echoing is enabled.
package service
