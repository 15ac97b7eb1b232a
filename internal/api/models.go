package api

// Common request/response structures

// CreateTaskRequest defines the payload for the task submission endpoint.
type CreateTaskRequest struct {
	Message string `json:"message" validate:"required"`
}

// CreateTaskResponse defines the successful response for task submission.
// Processing happens asynchronously; outcomes are only observable through
// the statistics endpoint.
type CreateTaskResponse struct {
	ID string `json:"id"`
}
