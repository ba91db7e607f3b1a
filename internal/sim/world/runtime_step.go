package world

import (
	"dragonpot.game/internal/observerproto"
)

func (w *World) step(actions []ActionEnvelope) {
	nowTick := w.tick.Load()

	// Apply actions in server receive order (the inbox order).
	recorded := make([]RecordedAction, 0, len(actions))
	for _, env := range actions {
		recorded = append(recorded, RecordedAction{PlayerID: PlayerID, Act: env.Act})
		w.applyAct(env, nowTick)
	}

	// Systems: player -> physics -> plants -> npcs -> station -> expiry -> round
	if !w.roundClosed {
		w.systemPlayer()
		w.systemPhysics()
		w.systemPlants()
		w.systemNPCs()
		w.station.Advance(w.dt)
		w.systemItemExpiry()
		w.round.Advance(w.dt)
	}
	w.board.Advance(w.dt)
	if !w.roundClosed {
		w.systemZones()
		if w.round.Over() {
			w.closeRound(string(w.round.Outcome()))
		}
	}

	w.stepObservers(nowTick, recorded)

	digest := w.stateDigest(nowTick)
	w.lastDigest = digest
	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, RoundID: w.roundID, Actions: recorded, Digest: digest}); err != nil {
			w.log.Printf("tick log: %v", err)
		}
	}
	if w.eventLogger != nil {
		for _, ev := range w.events {
			if err := w.eventLogger.WriteEvent(ev); err != nil {
				w.log.Printf("event log: %v", err)
				break
			}
		}
	}
	w.events = w.events[:0]

	w.tick.Add(1)
	if w.roundClosed && w.cfg.AutoRestart && !w.done.Load() {
		w.startRound()
	}
	w.publishSummary()
}

func (w *World) systemPlants() {
	for _, id := range w.plantIDs {
		w.plants[id].Advance(w.dt)
	}
}

func (w *World) systemNPCs() {
	env := npcEnv{w}
	for _, id := range w.npcIDs {
		w.npcs[id].Tick(env, w.dt)
	}
}

// closeRound records the finished round. The arena freezes until a restart.
func (w *World) closeRound(outcome string) {
	st := w.round.State()
	w.roundClosed = true
	res := RoundResult{
		RoundID:      w.roundID,
		WorldID:      w.cfg.ID,
		Seed:         w.cfg.Seed,
		Outcome:      outcome,
		Score:        st.Score,
		Completed:    st.Completed,
		Swaps:        w.station.Swaps(),
		Satisfaction: st.Satisfaction,
		Patience:     st.Patience,
		Elapsed:      st.Elapsed,
		StartTick:    w.roundStartTick,
		EndTick:      w.tick.Load(),
		Number:       w.roundNum,
	}
	final := w.buildTickMsg(res.EndTick)
	if final.Station.Recipe != nil {
		final.Station.Recipe = final.Station.Recipe.Copy()
	}
	res.Final = &final
	w.emit(GameEvent{Type: observerproto.EventRoundEnded, Outcome: outcome, Score: st.Score})
	w.log.Printf("round %d ended: id=%s outcome=%s score=%d completed=%d", w.roundNum, w.roundID, outcome, st.Score, st.Completed)
	if w.resultRecorder != nil {
		if err := w.resultRecorder.RecordRound(res); err != nil {
			w.log.Printf("record round %s: %v", w.roundID, err)
		}
	}
	if w.cfg.MaxRounds > 0 && w.roundNum >= w.cfg.MaxRounds {
		w.done.Store(true)
	}
	w.lastResult = &res
}

// LastResult is the most recent finished round, if any. World loop only.
func (w *World) LastResult() (RoundResult, bool) {
	if w.lastResult == nil {
		return RoundResult{}, false
	}
	return *w.lastResult, true
}

func (w *World) publishSummary() {
	w.summary.Store(&Summary{
		Tick:    w.tick.Load(),
		RoundID: w.roundID,
		Round:   w.round.State(),
		Done:    w.done.Load(),
	})
}
