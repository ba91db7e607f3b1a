package world

// systemZones staffs empty zones with free NPCs standing inside them. A
// zone keeps at most one worker; the worker leaves only when the player
// picks it up.
func (w *World) systemZones() {
	for _, zid := range w.zoneIDs {
		z := w.zones[zid]
		if z.WorkerID != "" {
			if n := w.npcs[z.WorkerID]; n != nil && n.ZoneID == z.ID {
				continue
			}
			z.WorkerID = ""
		}
		for _, nid := range w.npcIDs {
			n := w.npcs[nid]
			if n.ZoneID != "" || n.Held() || n.Airborne() || !z.Contains(n.Pos) {
				continue
			}
			n.AssignZone(z.ID)
			z.WorkerID = n.ID
			break
		}
	}
}
