package main

import (
	"log"
	"time"
)

// reap evicts players with no inbound activity within the inactive timeout,
// tells everyone, and closes their connections.
func (g *Game) reap(now time.Time) {
	reaped := g.registry.ReapInactive(now, g.cfg.InactiveTimeout)
	if len(reaped) == 0 {
		return
	}
	g.syncPlayerCount()
	for _, p := range reaped {
		if s, ok := g.sessions[p.ConnID]; ok {
			s.state = stateTerminated
		}
		g.hub.BroadcastAll(EvPlayerDisconnected, PlayerDisconnectedMsg{PlayerID: p.ID})
		g.hub.Close(p.ConnID)
		log.Printf("removed inactive player: %s (%s)", p.Name, p.ID)
	}
}
