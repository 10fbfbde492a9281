package model

// ErrorBody is the JSON shape the backend uses for failed requests.
type ErrorBody struct {
	Message string `json:"message"`
}
