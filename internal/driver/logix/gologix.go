package logix

import (
	"fmt"
	"sort"
	"time"

	"github.com/danomagnum/gologix"
)

// gologixTransport adapts a gologix.Client to transport.
type gologixTransport struct {
	client *gologix.Client
}

var _ transport = (*gologixTransport)(nil)

func dialGologix(ip, route string, timeout time.Duration, connectionSize int) (transport, error) {
	client := gologix.NewClient(ip)

	path, err := gologix.ParsePath(route)
	if err != nil {
		return nil, fmt.Errorf("logix: parsing route %q: %w", route, err)
	}
	client.Controller.Path = path
	if timeout > 0 {
		client.SocketTimeout = timeout
	}
	client.ConnectionSize = uint16(connectionSize)

	return &gologixTransport{client: client}, nil
}

func (g *gologixTransport) Connect() error {
	return g.client.Connect()
}

func (g *gologixTransport) Disconnect() error {
	return g.client.Disconnect()
}

func (g *gologixTransport) ReadTag(tag string, dataType uint16, count int) (any, error) {
	return g.client.Read_single(tag, gologix.CIPType(dataType), uint16(count))
}

func (g *gologixTransport) WriteTag(tag string, value any) error {
	return g.client.Write(tag, value)
}

func (g *gologixTransport) Symbols() ([]symbol, error) {
	if err := g.client.ListAllTags(0); err != nil {
		return nil, err
	}

	syms := make([]symbol, 0, len(g.client.KnownTags))
	for _, kt := range g.client.KnownTags {
		syms = append(syms, symbol{
			Name:     kt.Name,
			Instance: int(kt.Instance),
			Type:     uint16(kt.Info.Type),
			Dims: [3]int{
				int(kt.Info.Dimension1),
				int(kt.Info.Dimension2),
				int(kt.Info.Dimension3),
			},
		})
	}
	// KnownTags is a map; the controller's instance order is stable.
	sort.Slice(syms, func(i, j int) bool { return syms[i].Instance < syms[j].Instance })
	return syms, nil
}

func (g *gologixTransport) Request(service byte, path, data []byte) ([]byte, error) {
	item, err := g.client.GenericCIPMessage(gologix.CIPService(service), path, data)
	if err != nil {
		return nil, err
	}
	return item.Data, nil
}

func (g *gologixTransport) SetConnectionSize(size int) {
	g.client.ConnectionSize = uint16(size)
}
