package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeSpawn  = "SPAWN"
	TypeGive   = "GIVE"
	TypePlace  = "PLACE"
	TypeRemove = "REMOVE"
	TypeList   = "LIST"
	TypeResult = "RESULT"

	// Host world editing, used to build structures before PLACE.
	TypeSetBlock = "SET_BLOCK"
	TypeFill     = "FILL"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func IsCommandType(t string) bool {
	switch t {
	case TypeSpawn, TypeGive, TypePlace, TypeRemove, TypeList, TypeSetBlock, TypeFill:
		return true
	}
	return false
}
