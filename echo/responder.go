package echo

import "net"

// Responder answers echo datagrams on the mesh service port.
type Responder struct {
	conn *net.UDPConn
}

// StartResponder listens on the given UDP address (e.g. ":7800") and echoes
// every well-formed probe datagram back to its sender.
func StartResponder(addr string) (*Responder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	resp := &Responder{conn: conn}
	go resp.serve()
	return resp, nil
}

// LocalAddr returns the local address of the responder.
func (r *Responder) LocalAddr() string {
	if r == nil || r.conn == nil {
		return ""
	}
	return r.conn.LocalAddr().String()
}

// Close stops the responder.
func (r *Responder) Close() error {
	if r == nil || r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func (r *Responder) serve() {
	buf := make([]byte, 2048)
	for {
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if len(buf[:n]) < len(echoPrefix) || string(buf[:len(echoPrefix)]) != echoPrefix {
			continue
		}
		_, _ = r.conn.WriteToUDP(buf[:n], addr)
	}
}
