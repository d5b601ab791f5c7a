package protocol

// Command (client -> server). Which fields are read depends on Type:
//
//	SPAWN  name, world, pos
//	GIVE   name, player, amount
//	PLACE  name, world, pos, orientation
//	REMOVE world, pos
//	LIST   category (entity, item or multiblock; empty lists all)
//	SET_BLOCK world, pos, block
//	FILL   world, pos, to, block (inclusive box)
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`

	Name        string `json:"name,omitempty"`
	Player      string `json:"player,omitempty"`
	World       string `json:"world,omitempty"`
	Pos         [3]int `json:"pos,omitempty"`
	Amount      int    `json:"amount,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	Category    string `json:"category,omitempty"`
	Block       string `json:"block,omitempty"`
	To          [3]int `json:"to,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReplyTo         string `json:"reply_to,omitempty"`
	RequestID       string `json:"request_id,omitempty"`

	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`

	ContentID  string              `json:"content_id,omitempty"`
	Entities   []string            `json:"entities,omitempty"`
	Items      int                 `json:"items,omitempty"`
	InstanceID string              `json:"instance_id,omitempty"`
	Names      map[string][]string `json:"names,omitempty"`
	Blocks     int                 `json:"blocks,omitempty"`
	ServerTick uint64              `json:"server_tick,omitempty"`
}

func NewResult(cmd CommandMsg) ResultMsg {
	return ResultMsg{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ReplyTo:         cmd.Type,
		RequestID:       cmd.RequestID,
	}
}
