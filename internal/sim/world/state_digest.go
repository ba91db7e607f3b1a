package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"dragonpot.game/internal/sim/geom"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

type digester struct {
	h   hashWriter
	tmp [8]byte
}

func (d *digester) u64(v uint64) {
	binary.LittleEndian.PutUint64(d.tmp[:], v)
	d.h.Write(d.tmp[:])
}

func (d *digester) i64(v int64)     { d.u64(uint64(v)) }
func (d *digester) f64(v float64)   { d.u64(math.Float64bits(v)) }
func (d *digester) vec(v geom.Vec3) { d.f64(v.X); d.f64(v.Y); d.f64(v.Z) }

func (d *digester) str(s string) {
	d.u64(uint64(len(s)))
	d.h.Write([]byte(s))
}

func (d *digester) flag(b bool) {
	if b {
		d.h.Write([]byte{1})
	} else {
		d.h.Write([]byte{0})
	}
}

func (d *digester) strs(ss []string) {
	d.u64(uint64(len(ss)))
	for _, s := range ss {
		d.str(s)
	}
}

// stateDigest hashes the canonical arena state. Objects are visited in id
// order so two worlds in the same state agree.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	d := &digester{h: h}

	d.u64(nowTick)
	d.str(w.roundID)
	d.i64(int64(w.roundNum))
	d.flag(w.roundClosed)

	rs := w.round.State()
	d.f64(rs.Remaining)
	d.i64(int64(rs.Patience))
	d.i64(int64(rs.Satisfaction))
	d.i64(int64(rs.Score))
	d.i64(int64(rs.Completed))
	d.str(string(rs.Outcome))
	d.flag(rs.MemoryLost)

	w.digestStation(d)

	p := w.player
	d.vec(p.Pos)
	d.strs(p.Carried)
	d.str(p.harvestID)

	for _, id := range w.plantIDs {
		pl := w.plants[id]
		d.str(id)
		d.u64(uint64(pl.State()))
		d.str(pl.Harvester())
		d.f64(pl.Progress())
		d.f64(pl.RegrowLeft())
	}
	ids := w.sortedItemIDs()
	d.u64(uint64(len(ids)))
	for _, id := range ids {
		it := w.items[id]
		d.str(id)
		d.u64(uint64(it.Crop))
		d.vec(it.Pos)
		d.vec(it.Vel)
		d.str(it.CarrierID)
	}
	for _, id := range w.npcIDs {
		n := w.npcs[id]
		d.str(id)
		d.str(string(n.State()))
		d.vec(n.Pos)
		d.strs(n.Carried)
		d.str(n.ZoneID)
		d.flag(n.Held())
		d.flag(n.Airborne())
	}
	for _, id := range w.zoneIDs {
		d.str(id)
		d.str(w.zones[id].WorkerID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestStation(d *digester) {
	s := w.station
	d.i64(int64(s.Completed()))
	d.i64(int64(s.Swaps()))
	d.f64(s.Elapsed())
	first, ok := s.FirstIngredientAt()
	d.flag(ok)
	d.f64(first)
	r := s.Active()
	if r == nil {
		d.i64(-1)
		return
	}
	d.i64(int64(r.ID))
	for _, in := range r.Ingredients {
		d.u64(uint64(in.Crop))
		d.i64(int64(in.Required))
		d.i64(int64(in.Current))
	}
}
