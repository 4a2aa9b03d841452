package drawguess

// StateFor serializes the room for one player. Private information is
// hidden: the literal word is present only in the drawer's view, word
// choices only in the chooser's view; everyone else gets the masked hint.
func (r *Room) StateFor(playerID string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]map[string]any, 0, len(r.order))
	for _, id := range r.order {
		player := r.players[id]
		players = append(players, map[string]any{
			"playerId":  player.ID,
			"name":      player.Name,
			"avatar":    player.Avatar,
			"score":     player.Score,
			"connected": player.Connected,
			"guessed":   contains(r.correct, player.ID),
		})
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
		"round":       r.round,
		"totalRounds": r.settings.Rounds,
		"players":     players,
		"spectators":  spectators,
		"maxPlayers":  r.settings.MaxPlayers,
		"isSpectator": r.isSpectatorLocked(playerID),
	}

	drawerID := r.currentDrawerIDLocked()
	switch r.state {
	case StateChoosing:
		state["drawerId"] = drawerID
		state["chooseSeconds"] = r.settings.ChooseSeconds
		if playerID == drawerID {
			state["wordChoices"] = append([]string(nil), r.wordChoices...)
		}
	case StatePlaying:
		state["drawerId"] = drawerID
		state["drawSeconds"] = r.settings.DrawSeconds
		state["roundStartedAt"] = r.roundStart
		state["strokes"] = append([]Stroke(nil), r.strokes...)
		if playerID == drawerID {
			state["word"] = r.currentWord
		} else {
			state["hint"] = r.maskedWordLocked()
		}
	case StateBetweenRounds:
		state["word"] = r.currentWord
	case StateEnded:
		state["reason"] = r.endReason
		state["ranking"] = rankingPayload(r.rankingLocked())
	}
	return state
}

func (r *Room) isSpectatorLocked(playerID string) bool {
	_, ok := r.spectators[playerID]
	return ok
}
