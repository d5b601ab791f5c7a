package engine

const chunkSize = 16

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

type Chunk struct {
	CX, CY, CZ int
	Blocks     []uint16 // len = 16*16*16, palette ids

	nonAir int
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*chunkSize + y*chunkSize*chunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

// Set stores b and returns the previous palette id.
func (c *Chunk) Set(x, y, z int, b, air uint16) uint16 {
	i := c.index(x, y, z)
	old := c.Blocks[i]
	if old == b {
		return old
	}
	c.Blocks[i] = b
	switch {
	case old == air:
		c.nonAir++
	case b == air:
		c.nonAir--
	}
	return old
}

// ChunkStore keeps chunks sparsely; chunks that were never written read as air.
type ChunkStore struct {
	Air    uint16
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(air uint16) *ChunkStore {
	return &ChunkStore{
		Air:    air,
		Chunks: map[ChunkKey]*Chunk{},
	}
}

func chunkCoords(p Vec3i) (ChunkKey, int, int, int) {
	k := ChunkKey{
		CX: floorDiv(p.X, chunkSize),
		CY: floorDiv(p.Y, chunkSize),
		CZ: floorDiv(p.Z, chunkSize),
	}
	return k, mod(p.X, chunkSize), mod(p.Y, chunkSize), mod(p.Z, chunkSize)
}

func (s *ChunkStore) GetBlock(p Vec3i) uint16 {
	k, lx, ly, lz := chunkCoords(p)
	ch, ok := s.Chunks[k]
	if !ok {
		return s.Air
	}
	return ch.Get(lx, ly, lz)
}

// SetBlock writes b at p and returns the previous palette id. Chunks that
// become all-air are dropped.
func (s *ChunkStore) SetBlock(p Vec3i, b uint16) uint16 {
	k, lx, ly, lz := chunkCoords(p)
	ch, ok := s.Chunks[k]
	if !ok {
		if b == s.Air {
			return s.Air
		}
		ch = s.newChunk(k)
	}
	old := ch.Set(lx, ly, lz, b, s.Air)
	if ch.nonAir == 0 {
		delete(s.Chunks, k)
	}
	return old
}

func (s *ChunkStore) newChunk(k ChunkKey) *Chunk {
	ch := &Chunk{
		CX:     k.CX,
		CY:     k.CY,
		CZ:     k.CZ,
		Blocks: make([]uint16, chunkSize*chunkSize*chunkSize),
	}
	if s.Air != 0 {
		for i := range ch.Blocks {
			ch.Blocks[i] = s.Air
		}
	}
	s.Chunks[k] = ch
	return ch
}
