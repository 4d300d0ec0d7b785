package room_api_client

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// Base URL
	DefaultBaseURL = "http://0.0.0.0:8000"

	// API Endpoints
	RoomsEndpoint = "/api/rooms"

	// Query parameters
	VersionParam  = "version"
	PlayerIDParam = "player_id"
)

func roomByCodePath(code string) string {
	return fmt.Sprintf("%s/%s", RoomsEndpoint, url.PathEscape(code))
}

func joinPath(code string) string {
	return roomByCodePath(code) + "/join"
}

func roomPath(roomID, suffix string) string {
	return fmt.Sprintf("%s/%s%s", RoomsEndpoint, url.PathEscape(roomID), suffix)
}

func roundPath(roomID string, roundNumber int, suffix string) string {
	return roomPath(roomID, fmt.Sprintf("/rounds/%d%s", roundNumber, suffix))
}

func statePath(roomID string, version int64, playerID string) string {
	q := url.Values{}
	q.Set(VersionParam, strconv.FormatInt(version, 10))
	if playerID != "" {
		q.Set(PlayerIDParam, playerID)
	}
	return roomPath(roomID, "/state") + "?" + q.Encode()
}

func withPlayer(path, playerID string) string {
	if playerID == "" {
		return path
	}
	q := url.Values{}
	q.Set(PlayerIDParam, playerID)
	return path + "?" + q.Encode()
}
