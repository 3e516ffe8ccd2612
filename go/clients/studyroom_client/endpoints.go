package studyroom_client

const (
	// Default base URL for a locally running backend
	DefaultBaseURL = "http://localhost:8080"

	// API Endpoints, keyed by room join code
	StartTimerEndpoint = "/api/rooms/%s/timer/start"
	StopTimerEndpoint  = "/api/rooms/%s/timer/stop"
	StudyTimeEndpoint  = "/api/rooms/%s/study-time"
)
