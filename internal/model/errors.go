package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// エラーレスポンスのボディとしてそのままJSONエンコードされる。
type APIError struct {
	Code     string `json:"code"`     // エラーコード
	Message  string `json:"message"`  // エラーメッセージ
	Category string `json:"category"` // カテゴリ: auth, validation, cafe, system
	Action   string `json:"action"`   // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateEmail  = "DUPLICATE_EMAIL"
	ErrCodeDuplicateName   = "DUPLICATE_NAME"
	ErrCodeUnknownEmail    = "UNKNOWN_EMAIL"
	ErrCodeBadPassword     = "BAD_PASSWORD"
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeCafeNotFound    = "CAFE_NOT_FOUND"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeCSRFToken       = "CSRF_TOKEN_INVALID"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewDuplicateEmailError は登録済みメールアドレスでの再登録エラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "auth",
		Action:   "登録済みのアカウントでログインしてください。",
	}
}

// NewDuplicateNameError は既存カフェと同名での登録エラーを生成する。
func NewDuplicateNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateName,
		Message:  fmt.Sprintf("同じ名前のカフェが既に登録されています: %s", name),
		Category: "cafe",
		Action:   "別の名前で登録するか、既存の掲載を確認してください。",
	}
}

// NewUnknownEmailError は未登録メールアドレスでのログインエラーを生成する。
func NewUnknownEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeUnknownEmail,
		Message:  "このメールアドレスは登録されていません。",
		Category: "auth",
		Action:   "メールアドレスを確認するか、新規登録してください。",
	}
}

// NewBadPasswordError はパスワード不一致エラーを生成する。
func NewBadPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeBadPassword,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認して再度お試しください。",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewCafeNotFoundError はカフェ未検出エラーを生成する。
func NewCafeNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeCafeNotFound,
		Message:  fmt.Sprintf("指定されたカフェが見つかりません: %d", id),
		Category: "cafe",
		Action:   "カフェIDを確認してください。",
	}
}

// NewInvalidRequestError は入力検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCSRFTokenError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFToken,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "トークンを再取得して再度お試しください。",
	}
}

// NewInternalError は内部サーバーエラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
