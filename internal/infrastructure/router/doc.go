// Package router provides the ZeroMQ ROUTER endpoint the service listens on.
//
// A ROUTER socket prefixes every inbound message with the sender's identity
// frame and routes outbound messages by their first frame, so many DEALER
// or REQ clients can share one endpoint and each reply reaches the client
// that asked.
//
//	inbound  (DEALER): [identity, payload]
//	inbound  (REQ):    [identity, "", payload]
//	outbound:          [identity, "", payload]
//
// # Thread Safety
//
// ZeroMQ sockets are not safe for concurrent use. A Socket must be used from
// one goroutine at a time; the service's receive loop owns it.
//
// # Usage
//
//	sock, err := router.Bind(router.Config{Endpoint: "tcp://*:5555"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sock.Close()
//
//	identity, payload, ok, err := sock.Receive(100 * time.Millisecond)
//	if ok {
//	    sock.Send(identity, reply)
//	}
package router
