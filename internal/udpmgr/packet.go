package udpmgr

import (
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/postalsys/udpshare/internal/sockaddr"
)

// packetConn reads datagrams together with their destination address and
// receiving interface when the platform supports it.
type packetConn struct {
	conn *net.UDPConn
	p4   *ipv4.PacketConn
	p6   *ipv6.PacketConn
}

type packet struct {
	n       int
	src     net.Addr
	dst     net.IP
	ifIndex int
}

// newPacketConn wraps conn. If control messages cannot be enabled the
// returned packetConn still works and the error is informational.
func newPacketConn(conn *net.UDPConn, family sockaddr.Family, controlMessages bool) (*packetConn, error) {
	pc := &packetConn{conn: conn}
	if !controlMessages {
		return pc, nil
	}

	switch family {
	case sockaddr.IPv4:
		p := ipv4.NewPacketConn(conn)
		if err := p.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
			return pc, err
		}
		pc.p4 = p
	case sockaddr.IPv6:
		p := ipv6.NewPacketConn(conn)
		if err := p.SetControlMessage(ipv6.FlagDst|ipv6.FlagInterface, true); err != nil {
			return pc, err
		}
		pc.p6 = p
	}

	return pc, nil
}

func (c *packetConn) readFrom(b []byte) (packet, error) {
	switch {
	case c.p4 != nil:
		n, cm, src, err := c.p4.ReadFrom(b)
		p := packet{n: n, src: src}
		if cm != nil {
			p.dst, p.ifIndex = cm.Dst, cm.IfIndex
		}
		return p, err
	case c.p6 != nil:
		n, cm, src, err := c.p6.ReadFrom(b)
		p := packet{n: n, src: src}
		if cm != nil {
			p.dst, p.ifIndex = cm.Dst, cm.IfIndex
		}
		return p, err
	default:
		n, src, err := c.conn.ReadFromUDP(b)
		return packet{n: n, src: src}, err
	}
}
