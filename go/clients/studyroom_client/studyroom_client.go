package studyroom_client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mcdev12/studyroom/go/clients"
	"github.com/mcdev12/studyroom/go/internal/timer"
)

type StudyRoomClient struct {
	*clients.BaseClient
}

var _ timer.Backend = (*StudyRoomClient)(nil)

func NewStudyRoomClient(baseURL, token string) *StudyRoomClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &StudyRoomClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetBearerToken(token)
	client.SetHeader("Accept", "application/json")

	return client
}

type startTimerRequest struct {
	RoomID      string `json:"roomId"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

type stopTimerRequest struct {
	RoomID  string `json:"roomId"`
	Enabled bool   `json:"enabled"`
}

type studyTimeRequest struct {
	RoomID  string `json:"roomId"`
	Minutes int    `json:"minutes"`
}

// StartTimer asks the backend to start the shared timer of a room.
func (c *StudyRoomClient) StartTimer(ctx context.Context, roomID string, durationSeconds int, description string) error {
	_, err := c.PostJSON(ctx, roomEndpoint(StartTimerEndpoint, roomID), startTimerRequest{
		RoomID:      roomID,
		Duration:    durationSeconds,
		Description: description,
		Enabled:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to start timer for room %s: %w", roomID, err)
	}
	return nil
}

// StopTimer asks the backend to stop the shared timer of a room.
func (c *StudyRoomClient) StopTimer(ctx context.Context, roomID string) error {
	_, err := c.PostJSON(ctx, roomEndpoint(StopTimerEndpoint, roomID), stopTimerRequest{
		RoomID:  roomID,
		Enabled: false,
	})
	if err != nil {
		return fmt.Errorf("failed to stop timer for room %s: %w", roomID, err)
	}
	return nil
}

// LogStudyTime records minutes of completed study for the current user.
func (c *StudyRoomClient) LogStudyTime(ctx context.Context, roomID string, minutes int) error {
	_, err := c.PostJSON(ctx, roomEndpoint(StudyTimeEndpoint, roomID), studyTimeRequest{
		RoomID:  roomID,
		Minutes: minutes,
	})
	if err != nil {
		return fmt.Errorf("failed to log study time for room %s: %w", roomID, err)
	}
	return nil
}

func roomEndpoint(format, roomID string) string {
	return fmt.Sprintf(format, url.PathEscape(roomID))
}
