package logix

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// broadcastListIdentity sends one ListIdentity request to the IPv4
// broadcast address and collects the answers that arrive within timeout.
// Each device is reported once.
func broadcastListIdentity(timeout time.Duration) ([]driver.Identity, error) {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("opening discovery socket: %w", err)
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: encapPort}
	if _, err := conn.WriteToUDP(listIdentityRequest(), dst); err != nil {
		return nil, fmt.Errorf("sending ListIdentity: %w", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	return collectIdentities(conn)
}

// packetReader is the receive side of a UDP socket.
type packetReader interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
}

// collectIdentities reads ListIdentity answers until the read deadline.
// Datagrams that are not identity replies are skipped.
func collectIdentities(r packetReader) ([]driver.Identity, error) {
	ids := []driver.Identity{}
	seen := make(map[string]bool)
	buf := make([]byte, 1500)

	for {
		n, from, err := r.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return ids, nil
			}
			return ids, fmt.Errorf("reading ListIdentity replies: %w", err)
		}

		id, err := parseListIdentity(buf[:n])
		if err != nil {
			continue
		}
		// Devices behind NAT or with DHCP pending report 0.0.0.0.
		if id.IPAddress == "0.0.0.0" && from != nil {
			id.IPAddress = from.IP.String()
		}
		if seen[id.IPAddress] {
			continue
		}
		seen[id.IPAddress] = true
		ids = append(ids, id)
	}
}
