package constant

import (
	"net"
	"net/netip"
	"strconv"
)

// Metadata is the subset of connection information the selection path cares
// about: where the request is going.
type Metadata struct {
	Host    string     `json:"host"`
	DstIP   netip.Addr `json:"destinationIP"`
	DstPort uint16     `json:"destinationPort"`
}

func (m *Metadata) RemoteAddress() string {
	return net.JoinHostPort(m.String(), strconv.FormatUint(uint64(m.DstPort), 10))
}

func (m *Metadata) Resolved() bool {
	return m.DstIP.IsValid()
}

func (m *Metadata) Valid() bool {
	return m.Host != "" || m.DstIP.IsValid()
}

func (m *Metadata) String() string {
	if m.Host != "" {
		return m.Host
	} else if m.DstIP.IsValid() {
		return m.DstIP.String()
	} else {
		return "<nil>"
	}
}
