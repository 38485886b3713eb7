package auxbus

import "io"

// HeaderByte marks the start of every packet on the wire.
const HeaderByte byte = 0x3b

// minPacketSize is header + length + source + destination + command +
// checksum, i.e. a packet with an empty payload.
const minPacketSize = 6

// Packet is one AUX protocol frame. It is a short-lived value: built per
// transaction, serialized or parsed, then discarded. Data is owned by the
// packet and never aliased across packets.
type Packet struct {
	Source      Target
	Destination Target
	Command     Command
	Data        []byte
}

// NewPacket creates a packet. data is copied.
func NewPacket(source, destination Target, command Command, data []byte) *Packet {
	p := &Packet{
		Source:      source,
		Destination: destination,
		Command:     command,
	}
	if len(data) > 0 {
		p.Data = append([]byte(nil), data...)
	}
	return p
}

// Length returns the declared length field value: payload size plus the
// source, destination and command bytes.
func (p *Packet) Length() byte {
	return byte(len(p.Data) + 3)
}

// Bytes returns the encoded wire buffer: header, length, source, destination,
// command, payload, checksum. Total size is Length()+3.
func (p *Packet) Bytes() []byte {
	b := make([]byte, len(p.Data)+minPacketSize)
	b[0] = HeaderByte
	b[1] = p.Length()
	b[2] = byte(p.Source)
	b[3] = byte(p.Destination)
	b[4] = byte(p.Command)
	copy(b[5:], p.Data)
	b[len(b)-1] = Checksum(b)
	return b
}

// WriteTo writes the encoded wire buffer.
func (p *Packet) WriteTo(w io.Writer) (int, error) {
	return w.Write(p.Bytes())
}

// Parse decodes raw into p. It returns a *StructuralError if raw is not a
// well-formed packet, or a *ChecksumError if the frame is well-formed but
// fails verification. On a checksum error the packet fields are still
// populated for diagnostic inspection, but must not be trusted.
func (p *Packet) Parse(raw []byte) error {
	if len(raw) < minPacketSize {
		return &StructuralError{Reason: "buffer shorter than minimum packet"}
	}
	if raw[0] != HeaderByte {
		return &StructuralError{Reason: "missing header byte"}
	}
	length := int(raw[1])
	if len(raw) != length+3 {
		return &StructuralError{Reason: "declared length disagrees with buffer size"}
	}

	p.Source = Target(raw[2])
	p.Destination = Target(raw[3])
	p.Command = Command(raw[4])
	p.Data = append([]byte(nil), raw[5:len(raw)-1]...)

	if want, got := Checksum(raw), raw[length+2]; want != got {
		return &ChecksumError{Want: want, Got: got}
	}
	return nil
}

// Checksum computes the checksum of an encoded packet buffer: the
// two's-complement negation of the byte sum of everything between the header
// byte and the checksum byte, exclusive of both. The sum of the covered bytes
// plus the checksum itself is therefore 0 mod 256.
func Checksum(raw []byte) byte {
	var sum byte
	for i := 1; i < int(raw[1])+2; i++ {
		sum += raw[i]
	}
	return -sum
}
