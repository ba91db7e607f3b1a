package npc

import "dragonpot.game/internal/sim/geom"

// landing watches an NPC in flight after a throw.
type landing struct {
	startedAt float64
	from      geom.Vec3
	stable    int
}

// PickUp is called when the player grabs the NPC. All work is cancelled,
// the stack falls, and the work area is forgotten so the next drop point
// can become the new one.
func (n *NPC) PickUp(env Env) {
	n.held = true
	n.harvest.Cancel()
	n.targetPlant = ""
	n.targetItem = ""
	n.abortPickup(env)
	n.dropAll(env)
	n.hasWorkArea = false
	n.forgetWaypoint()
	n.throwStart = n.Pos
	n.landing = nil
	n.Vel = geom.Vec3{}
	n.state = Idle
}

// Drop releases a held NPC. A thrown NPC waits until it has landed before
// working again; a placed one resumes after a short pause.
func (n *NPC) Drop(now float64, thrown bool, vel geom.Vec3) {
	if !n.held {
		return
	}
	n.held = false
	if thrown {
		n.Vel = vel
		n.Grounded = false
		n.landing = &landing{startedAt: now, from: n.throwStart}
		return
	}
	n.Vel = geom.Vec3{}
	n.Grounded = true
	n.nextDecision = now + n.cfg.AfterPlaceDelay
}

func (n *NPC) watchLanding(now float64) {
	l := n.landing
	if n.Grounded && n.Vel.Len() < n.cfg.LandingSpeed {
		l.stable++
	} else {
		l.stable = 0
	}
	if l.stable >= n.cfg.LandingStableTicks {
		n.landing = nil
		if n.Pos.Dist(l.from) > n.cfg.RelocateDistance {
			n.workArea = n.Pos
			n.hasWorkArea = true
			n.hasLastCrop = false
		}
		n.nextDecision = now + n.cfg.AfterLandingDelay
		return
	}
	if now-l.startedAt >= n.cfg.LandingTimeout {
		n.landing = nil
		n.nextDecision = now
	}
}
