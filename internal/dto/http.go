package dto

// BaseResponse is the envelope of every API reply.
type BaseResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func NewSuccessResponse(data interface{}) *BaseResponse {
	return &BaseResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(code, message string) *BaseResponse {
	return &BaseResponse{
		Success: false,
		Error:   message,
		Code:    code,
	}
}
