package timeline

// StateFor serializes the room for one player. A player sees the full card
// list of their own timeline; for everyone else only the count is exposed.
// The current song's year stays hidden while the card is still in play.
func (r *Room) StateFor(playerID string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]map[string]any, 0, len(r.order))
	for _, id := range r.order {
		player := r.players[id]
		entry := map[string]any{
			"playerId":  player.ID,
			"name":      player.Name,
			"avatar":    player.Avatar,
			"connected": player.Connected,
			"cards":     len(player.Timeline),
		}
		if id == playerID {
			entry["timeline"] = append([]Song(nil), player.Timeline...)
		}
		players = append(players, entry)
	}
	spectators := make([]map[string]any, 0, len(r.specOrder))
	for _, id := range r.specOrder {
		spectator := r.spectators[id]
		spectators = append(spectators, map[string]any{
			"playerId":  spectator.ID,
			"name":      spectator.Name,
			"connected": spectator.Connected,
		})
	}

	state := map[string]any{
		"roomId":       r.id,
		"name":         r.name,
		"state":        r.state,
		"hostId":       r.hostID,
		"players":      players,
		"spectators":   spectators,
		"maxPlayers":   r.settings.MaxPlayers,
		"targetLength": r.settings.TargetLength,
		"isSpectator":  r.isSpectatorLocked(playerID),
	}

	switch r.state {
	case StatePlaying:
		state["phase"] = r.phase
		state["currentPlayerId"] = r.currentPlayerIDLocked()
		if r.hasSong {
			state["songId"] = r.currentSong.ID
			state["preview"] = r.currentSong.Preview
		}
		if r.phase == PhaseStealing && len(r.stealQueue) > 0 {
			state["stealQueue"] = append([]string(nil), r.stealQueue...)
			state["stealPlayerId"] = r.stealQueue[0]
		}
	case StateEnded:
		state["reason"] = r.endReason
		state["winnerId"] = r.winnerID
		state["ranking"] = r.rankingLocked()
	}
	return state
}

func (r *Room) isSpectatorLocked(playerID string) bool {
	_, ok := r.spectators[playerID]
	return ok
}
