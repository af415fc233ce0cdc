package protocol

import "fmt"

// Frame layout on the wire:
//
//	[0xFE sync] [type] [payload length] [payload...] [checksum]
//
// The checksum is the XOR of the type byte, the length byte and every
// payload byte. The maximum payload length is 255 bytes.
const (
	SyncByte = 0xFE

	// Frame overhead: sync + type + length + checksum
	frameOverhead = 4
)

// Wire type codes carried in the type byte.
const (
	TypeInit1     = 0x01
	TypeInit2     = 0x02 // rig finished booting
	TypeEOS       = 0x03 // end of session, rig powering down
	TypeKeepalive = 0x04
	TypePWK       = 0x05 // power on/off request; payload[0] = desired state
	TypeLCD       = 0x06 // display update
)

// Class identifies what a decoded packet means to the bridge. Packet
// types the bridge does not act on classify as ClassOther and are
// forwarded like everything else.
type Class int

const (
	ClassOther Class = iota
	ClassInit2
	ClassEndOfSession
	ClassPowerToggle
	ClassDisplayUpdate
	ClassKeepalive
)

func (c Class) String() string {
	switch c {
	case ClassOther:
		return "other"
	case ClassInit2:
		return "init2"
	case ClassEndOfSession:
		return "end_of_session"
	case ClassPowerToggle:
		return "power_toggle"
	case ClassDisplayUpdate:
		return "display_update"
	case ClassKeepalive:
		return "keepalive"
	default:
		return "unknown"
	}
}

// Packet is the classification of one complete frame. PowerOn is only
// meaningful for ClassPowerToggle.
type Packet struct {
	Class   Class
	PowerOn bool
}

func classify(typ byte, payload []byte) Packet {
	switch typ {
	case TypeInit2:
		return Packet{Class: ClassInit2}
	case TypeEOS:
		return Packet{Class: ClassEndOfSession}
	case TypePWK:
		on := len(payload) > 0 && payload[0] != 0
		return Packet{Class: ClassPowerToggle, PowerOn: on}
	case TypeLCD:
		return Packet{Class: ClassDisplayUpdate}
	case TypeKeepalive:
		return Packet{Class: ClassKeepalive}
	default:
		return Packet{Class: ClassOther}
	}
}

// Encode builds a complete frame for the given type and payload.
func Encode(typ byte, payload []byte) ([]byte, error) {
	if len(payload) > 255 {
		return nil, fmt.Errorf("payload too long: %d bytes", len(payload))
	}

	frame := make([]byte, 0, len(payload)+frameOverhead)
	frame = append(frame, SyncByte, typ, byte(len(payload)))
	frame = append(frame, payload...)

	sum := typ ^ byte(len(payload))
	for _, b := range payload {
		sum ^= b
	}
	frame = append(frame, sum)

	return frame, nil
}

// KeepaliveFrame returns an encoded keepalive frame.
func KeepaliveFrame() []byte {
	frame, _ := Encode(TypeKeepalive, nil)
	return frame
}

// PowerToggleFrame returns an encoded power on/off request frame.
func PowerToggleFrame(on bool) []byte {
	payload := []byte{0}
	if on {
		payload[0] = 1
	}
	frame, _ := Encode(TypePWK, payload)
	return frame
}
