package shed

// StateFor serializes the room for one player. Only the caller's own hand is
// listed card by card; everyone else is reduced to a count.
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
			"bot":       player.IsBot,
			"handCount": len(player.Hand),
		}
		if id == playerID {
			entry["hand"] = append([]Card(nil), player.Hand...)
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
		"roomId":      r.id,
		"name":        r.name,
		"state":       r.state,
		"hostId":      r.hostID,
		"players":     players,
		"spectators":  spectators,
		"maxPlayers":  r.settings.MaxPlayers,
		"isSpectator": r.isSpectatorLocked(playerID),
	}

	switch r.state {
	case StatePlaying:
		state["currentPlayerId"] = r.currentPlayerIDLocked()
		state["topCard"] = r.topCardLocked()
		state["direction"] = r.direction
		state["pendingDraw"] = r.pendingDraw
		state["chosenSuit"] = r.chosenSuit
		state["deckCount"] = len(r.deck)
	case StateFinished:
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
