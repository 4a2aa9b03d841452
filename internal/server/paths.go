package server

import "strings"

// parseRoomPath splits a path of the form {prefix}{kind}/{roomID} or, for
// the API, {prefix}{kind}/rooms/{roomID}[/{action}].
func parseRoomPath(path, prefix string) (string, string, string, bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", "", "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	switch len(parts) {
	case 2:
		return parts[0], parts[1], "", true
	default:
		return "", "", "", false
	}
}

// parseAPIRoomPath handles /api/{kind}/rooms/{roomID}[/{action}].
func parseAPIRoomPath(path string) (string, string, string, bool) {
	const prefix = "/api/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", "", false
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/")
	if len(parts) < 3 || parts[1] != "rooms" || parts[0] == "" || parts[2] == "" {
		return "", "", "", false
	}
	kind, roomID := parts[0], parts[2]
	if len(parts) == 3 {
		return kind, roomID, "", true
	}
	if len(parts) == 4 {
		return kind, roomID, parts[3], true
	}
	return "", "", "", false
}
