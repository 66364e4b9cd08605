package logix

import (
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// transport is the part of an EtherNet/IP client a Session uses.
type transport interface {
	Connect() error
	Disconnect() error

	// ReadTag reads count elements. dataType 0 leaves the type to the
	// controller's reply.
	ReadTag(tag string, dataType uint16, count int) (any, error)

	// WriteTag writes a Go-typed value (int32 for DINT, []float32 for a
	// REAL array and so on).
	WriteTag(tag string, value any) error

	// Symbols lists the controller's symbol table.
	Symbols() ([]symbol, error)

	// Request sends one explicit message and returns the reply data.
	Request(service byte, path, data []byte) ([]byte, error)

	SetConnectionSize(size int)
}

// symbol is one entry of the controller's symbol table.
type symbol struct {
	Name     string
	Instance int
	Type     uint16
	Dims     [3]int
}

// dialFunc builds an unconnected transport for ip routed through route.
type dialFunc func(ip, route string, timeout time.Duration, connectionSize int) (transport, error)

// discoverFunc collects ListIdentity answers for timeout.
type discoverFunc func(timeout time.Duration) ([]driver.Identity, error)
