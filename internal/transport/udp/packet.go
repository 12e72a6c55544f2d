// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"fmt"
	"math"

	"micpipe/internal/audio"
)

/*
UDP Packet Structure (BigEndian)

+------------------------------------------------------------------------------+
| Field             | Data Type | Size (Bytes) | Description                     |
|-------------------|-----------|--------------|---------------------------------|
| Sequence Number   | uint32    | 4            | Monotonically increasing        |
| Timestamp         | int64     | 8            | Send time, nanoseconds (epoch)  |
| Sample Time       | int64     | 8            | Block start, target-rate frames |
| Volume            | float32   | 4            | Gated envelope volume           |
| RMS               | float32   | 4            | Channel-averaged RMS            |
| Peak Amplitude    | float32   | 4            | Loudest chunk amplitude         |
| Peak Frame        | uint32    | 4            | Frame position of the peak      |
| Flags             | uint8     | 1            | bit0 capturing, bit1 speaking,  |
|                   |           |              | bit2 has peak                   |
+------------------------------------------------------------------------------+
*/

// PacketSize is the encoded size of a Packet.
const PacketSize = 4 + 8 + 8 + 4 + 4 + 4 + 4 + 1

// Packet flags.
const (
	FlagCapturing uint8 = 1 << iota
	FlagSpeaking
	FlagHasPeak
)

// Packet is one level update on the wire.
type Packet struct {
	Sequence      uint32
	Timestamp     int64
	SampleTime    int64
	Volume        float32
	RMS           float32
	PeakAmplitude float32
	PeakFrame     uint32
	Flags         uint8
}

// PacketFromSnapshot fills the level fields of a packet. Sequence and
// Timestamp are set by the publisher.
func PacketFromSnapshot(s *audio.Snapshot) Packet {
	p := Packet{
		SampleTime: s.Timestamp.SampleTime,
		Volume:     s.Volume,
		RMS:        s.RMS,
	}
	if s.Capturing {
		p.Flags |= FlagCapturing
	}
	if s.Speaking {
		p.Flags |= FlagSpeaking
	}
	if s.HasPeak {
		p.Flags |= FlagHasPeak
		p.PeakAmplitude = s.Peak.Amplitude
		p.PeakFrame = uint32(s.Peak.FramePosition)
	}
	return p
}

// AppendBinary appends the encoded packet to dst.
func (p Packet) AppendBinary(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, p.Sequence)
	dst = binary.BigEndian.AppendUint64(dst, uint64(p.Timestamp))
	dst = binary.BigEndian.AppendUint64(dst, uint64(p.SampleTime))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(p.Volume))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(p.RMS))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(p.PeakAmplitude))
	dst = binary.BigEndian.AppendUint32(dst, p.PeakFrame)
	return append(dst, p.Flags)
}

// DecodePacket parses an encoded packet.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) != PacketSize {
		return Packet{}, fmt.Errorf("packet is %d bytes, want %d", len(b), PacketSize)
	}
	be := binary.BigEndian
	return Packet{
		Sequence:      be.Uint32(b[0:]),
		Timestamp:     int64(be.Uint64(b[4:])),
		SampleTime:    int64(be.Uint64(b[12:])),
		Volume:        math.Float32frombits(be.Uint32(b[20:])),
		RMS:           math.Float32frombits(be.Uint32(b[24:])),
		PeakAmplitude: math.Float32frombits(be.Uint32(b[28:])),
		PeakFrame:     be.Uint32(b[32:]),
		Flags:         b[36],
	}, nil
}
