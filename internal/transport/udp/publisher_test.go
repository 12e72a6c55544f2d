// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"micpipe/internal/audio"
)

type capturingWriter struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
	closed  bool
}

func (w *capturingWriter) Send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.packets = append(w.packets, append([]byte(nil), data...))
	return nil
}

func (w *capturingWriter) Close() error {
	w.closed = true
	return nil
}

func TestUDPPublisherSend(t *testing.T) {
	w := &capturingWriter{}
	p := newPublisher(w)
	p.now = func() time.Time { return time.Unix(0, 42) }

	s := &audio.Snapshot{Capturing: true, Volume: 0.25, Timestamp: audio.Timestamp{SampleTime: 16384}}
	for range 2 {
		if err := p.Send(s); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	if len(w.packets) != 2 {
		t.Fatalf("sent %d packets, want 2", len(w.packets))
	}
	for i, raw := range w.packets {
		pkt, err := DecodePacket(raw)
		if err != nil {
			t.Fatalf("DecodePacket: %v", err)
		}
		if pkt.Sequence != uint32(i+1) {
			t.Errorf("packet %d sequence = %d", i, pkt.Sequence)
		}
		if pkt.Timestamp != 42 || pkt.SampleTime != 16384 || pkt.Volume != 0.25 || pkt.Flags != FlagCapturing {
			t.Errorf("packet %d = %+v", i, pkt)
		}
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close() = %v, closed = %v", err, w.closed)
	}
}

func TestUDPPublisherErrors(t *testing.T) {
	if _, err := NewUDPPublisher(nil); err == nil {
		t.Error("expected error for nil sender")
	}

	w := &capturingWriter{err: errors.New("unreachable")}
	p := newPublisher(w)
	if err := p.Send(&audio.Snapshot{}); err == nil {
		t.Error("expected the sender error")
	}
	if err := p.Send("levels"); err == nil {
		t.Error("expected error for a non-snapshot payload")
	}
}

func TestUDPSenderRoundTrip(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	pub, err := NewUDPPublisher(sender)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}

	if err := pub.Send(&audio.Snapshot{Capturing: true, Speaking: true, Volume: 0.5}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 128)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	pkt, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if pkt.Sequence != 1 || pkt.Volume != 0.5 || pkt.Flags != FlagCapturing|FlagSpeaking {
		t.Errorf("received %+v", pkt)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sender.Send([]byte{1}); err == nil {
		t.Error("Send after Close should fail")
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not-an-address"); err == nil {
		t.Error("expected a resolve error")
	}
}
