package datastructure

// TurnRestriction before resolution references raw osm way/node ids; the
// graph builder rewrites it to internal node ids (FromNode via ViaNode to
// ToNode) and invalidates rows whose members were filtered out.
type TurnRestriction struct {
	FromWay int64
	ViaOsm  int64
	ToWay   int64

	FromNode int32
	ViaNode  int32
	ToNode   int32

	OnlyTurn bool // only_* restriction, otherwise no_*
	ViaIsWay bool
	Valid    bool
}

func NewTurnRestriction(fromWay, viaOsm, toWay int64, onlyTurn bool) TurnRestriction {
	return TurnRestriction{
		FromWay:  fromWay,
		ViaOsm:   viaOsm,
		ToWay:    toWay,
		FromNode: INVALID_NODE_ID,
		ViaNode:  INVALID_NODE_ID,
		ToNode:   INVALID_NODE_ID,
		OnlyTurn: onlyTurn,
	}
}

// RestrictionIndex answers turn-legality queries at a via node.
type RestrictionIndex struct {
	byVia map[int32][]TurnRestriction
}

func NewRestrictionIndex(restrictions []TurnRestriction) *RestrictionIndex {
	idx := &RestrictionIndex{byVia: make(map[int32][]TurnRestriction)}
	for _, r := range restrictions {
		if !r.Valid {
			continue
		}
		idx.byVia[r.ViaNode] = append(idx.byVia[r.ViaNode], r)
	}
	return idx
}

func (ri *RestrictionIndex) IsViaNode(node int32) bool {
	_, ok := ri.byVia[node]
	return ok
}

// IsTurnRestricted reports whether the turn from->via->to is forbidden,
// either by a matching no_* restriction or by an only_* restriction whose
// mandatory target differs from to.
func (ri *RestrictionIndex) IsTurnRestricted(from, via, to int32) bool {
	for _, r := range ri.byVia[via] {
		if r.FromNode != from {
			continue
		}
		if r.OnlyTurn {
			if r.ToNode != to {
				return true
			}
		} else if r.ToNode == to {
			return true
		}
	}
	return false
}
