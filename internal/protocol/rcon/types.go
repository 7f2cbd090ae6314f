package rcon

import "strconv"

const (
	// MinLength is the declared length of a packet with an empty body:
	// id, type and two terminator bytes.
	MinLength = 10
	// LengthFieldSize is the size of the leading length field.
	LengthFieldSize = 4
	// HeaderSize covers length, id and type.
	HeaderSize = 12
	// MinPacketSize is the on-wire size of an empty-body packet.
	MinPacketSize = LengthFieldSize + MinLength

	terminator = 0x00
)

// PacketType tags the purpose of a packet.
type PacketType int32

// AuthResponse and ExecCommand share a wire value. Which one a packet
// carries depends on the direction it travels; see Role.
const (
	ResponseValue PacketType = 0
	AuthResponse  PacketType = 2
	ExecCommand   PacketType = 2
	Auth          PacketType = 3
)

// Role is the side of the connection interpreting a packet.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
}

// Name resolves the aliased tag for the reading side: clients receive
// AuthResponse, servers receive ExecCommand.
func (t PacketType) Name(role Role) string {
	switch t {
	case ResponseValue:
		return "response_value"
	case AuthResponse:
		if role == RoleServer {
			return "exec_command"
		}
		return "auth_response"
	case Auth:
		return "auth"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Message is one RCON packet.
type Message struct {
	ID   int32
	Type PacketType
	Body string
}

// DeclaredLength is the length field value Encode writes for m.
func (m Message) DeclaredLength() int {
	return MinLength + asciiByteCount(m.Body)
}

// Size is the total number of bytes Encode writes for m.
func (m Message) Size() int {
	return LengthFieldSize + m.DeclaredLength()
}
