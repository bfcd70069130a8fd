package response

// Response represents a standard API response format. Error messages travel
// in "detail" — clients surface that string verbatim.
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the detail message
func Error(statusCode int, detail string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Detail:     detail,
	}
}
