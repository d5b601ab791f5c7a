package multiblock

import (
	"strconv"
	"strings"

	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Orientation is a structure's facing, counted in clockwise quarter turns
// about the Y axis starting from NORTH.
type Orientation uint8

const (
	North Orientation = iota
	East
	South
	West
)

var orientationNames = [...]string{"NORTH", "EAST", "SOUTH", "WEST"}

func (o Orientation) String() string {
	if !o.Valid() {
		return "Orientation(" + strconv.Itoa(int(o)) + ")"
	}
	return orientationNames[o]
}

func (o Orientation) Valid() bool { return int(o) < len(orientationNames) }

// QuarterTurns folds any quarter-turn count, including negative ones, into
// an orientation.
func QuarterTurns(r int) Orientation {
	r %= 4
	if r < 0 {
		r += 4
	}
	return Orientation(r)
}

// ParseOrientation accepts a facing name (any case), a quarter-turn count in
// -3..3 or a multiple of 90 degrees.
func ParseOrientation(s string) (Orientation, bool) {
	s = strings.TrimSpace(s)
	for i, name := range orientationNames {
		if strings.EqualFold(s, name) {
			return Orientation(i), true
		}
	}
	r, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if r > 3 || r < -3 {
		if r%90 != 0 {
			return 0, false
		}
		r /= 90
	}
	return QuarterTurns(r), true
}

// Rotate turns an anchor-relative offset by o. Y is unchanged.
func (o Orientation) Rotate(off engine.Vec3i) engine.Vec3i {
	x, z := off.X, off.Z
	switch o & 3 {
	case East:
		x, z = z, -x
	case South:
		x, z = -x, -z
	case West:
		x, z = -z, x
	}
	return engine.Vec3i{X: x, Y: off.Y, Z: z}
}
