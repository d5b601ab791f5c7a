package kinds

type EntityKind uint8

const (
	GoblinWarrior EntityKind = iota + 1
	GoblinSquad
)

var entityKinds = newTable[EntityKind]("entity",
	"GOBLIN_WARRIOR",
	"GOBLIN_SQUAD",
)

func (k EntityKind) String() string { return entityKinds.name(k) }
func (k EntityKind) Valid() bool    { return entityKinds.valid(k) }

func ParseEntityKind(s string) (EntityKind, bool)  { return entityKinds.parse(s) }
func LookupEntityKind(s string) (EntityKind, bool) { return entityKinds.lookup(s) }
func AllEntityKinds() []EntityKind                 { return entityKinds.all() }

type ItemKind uint8

const (
	GoblinBlade ItemKind = iota + 1
	AltarKey
)

var itemKinds = newTable[ItemKind]("item",
	"GOBLIN_BLADE",
	"ALTAR_KEY",
)

func (k ItemKind) String() string { return itemKinds.name(k) }
func (k ItemKind) Valid() bool    { return itemKinds.valid(k) }

func ParseItemKind(s string) (ItemKind, bool)  { return itemKinds.parse(s) }
func LookupItemKind(s string) (ItemKind, bool) { return itemKinds.lookup(s) }
func AllItemKinds() []ItemKind                 { return itemKinds.all() }

type MultiblockKind uint8

const (
	Altar3x3 MultiblockKind = iota + 1
	ShrinePillar
)

var multiblockKinds = newTable[MultiblockKind]("multiblock",
	"ALTAR_3x3",
	"SHRINE_PILLAR",
)

func (k MultiblockKind) String() string { return multiblockKinds.name(k) }
func (k MultiblockKind) Valid() bool    { return multiblockKinds.valid(k) }

func ParseMultiblockKind(s string) (MultiblockKind, bool)  { return multiblockKinds.parse(s) }
func LookupMultiblockKind(s string) (MultiblockKind, bool) { return multiblockKinds.lookup(s) }
func AllMultiblockKinds() []MultiblockKind                 { return multiblockKinds.all() }
