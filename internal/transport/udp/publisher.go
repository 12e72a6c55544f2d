// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"
	"time"

	"micpipe/internal/audio"
	applog "micpipe/internal/log"
	"micpipe/internal/transport"
)

// packetWriter is the part of UDPSender the publisher needs.
type packetWriter interface {
	Send(data []byte) error
	Close() error
}

// UDPPublisher encodes snapshots as binary packets and sends them through a
// UDPSender. It is a transport.Transport driven by the poller.
type UDPPublisher struct {
	log    *applog.Logger
	sender packetWriter
	now    func() time.Time

	mu          sync.Mutex
	sequenceNum uint32 // Monotonically increasing sequence number for packets.
	buf         []byte // Reusable packet buffer.
}

// NewUDPPublisher creates a publisher over sender.
func NewUDPPublisher(sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	return newPublisher(sender), nil
}

func newPublisher(sender packetWriter) *UDPPublisher {
	return &UDPPublisher{
		log:    applog.Named("UDP"),
		sender: sender,
		now:    time.Now,
		buf:    make([]byte, 0, PacketSize),
	}
}

// Send encodes a *audio.Snapshot and transmits it. Other values are
// rejected.
func (p *UDPPublisher) Send(data any) error {
	s, ok := data.(*audio.Snapshot)
	if !ok {
		return fmt.Errorf("UDPPublisher: unsupported payload %T", data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	pkt := PacketFromSnapshot(s)
	pkt.Sequence = p.sequenceNum
	pkt.Timestamp = p.now().UnixNano()

	p.buf = pkt.AppendBinary(p.buf[:0])
	if err := p.sender.Send(p.buf); err != nil {
		return err
	}

	p.log.Debugf("sent packet %d (%d bytes)", p.sequenceNum, len(p.buf))
	return nil
}

// Close closes the underlying sender.
func (p *UDPPublisher) Close() error {
	return p.sender.Close()
}

// Ensure UDPPublisher satisfies the transport interface at compile time.
var _ transport.Transport = (*UDPPublisher)(nil)
