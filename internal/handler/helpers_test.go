package handler

// apiErrorResponse は統一エラーフォーマットのレスポンスをデコードするための型。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}
