package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"hanzikit/core"
)

// UpdateResult is the response to a statistic update or an explicit check.
type UpdateResult struct {
	Recognized bool                         `json:"recognized"`
	Unlocked   []core.AchievementDefinition `json:"unlocked"`
	// Messages are the rendered unlock notifications, one per achievement.
	Messages []string `json:"messages"`
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank   int         `json:"rank"`
	User   core.UserID `json:"user_id"`
	Points int64       `json:"points"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string         `json:"status"`
	Checks map[string]any `json:"checks"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrInvalidUserID is returned for non-positive user ids.
var ErrInvalidUserID = errors.New("user id must be positive")
