package dto

// ListParams carries keyset pagination query parameters.
type ListParams struct {
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
