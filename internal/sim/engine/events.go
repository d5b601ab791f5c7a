package engine

// BlockChangeEvent is delivered after a block's stored type changed.
type BlockChangeEvent struct {
	World *World
	Pos   Vec3i
	From  string
	To    string
}

// InteractEvent is delivered when a player right-clicks an entity.
type InteractEvent struct {
	Player *Player
	Entity *Entity
}
