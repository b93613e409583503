// Package model はドメインモデルを定義する。
package model

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// User はサービス利用ユーザーを表す。
// PasswordHashにはbcryptハッシュのみを格納する。平文パスワードは保存しない。
// ユーザーは登録後に更新・削除されない。
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	// CafeID は関連カフェへの参照。スキーマ上宣言されているが、
	// どの操作からも参照されない。
	CafeID    *int64
	CreatedAt time.Time
}

// AdminUserID は管理者とみなされるユーザーID。
// 最初に登録されたユーザー（ID=1）が管理者という位置的な規約。
const AdminUserID int64 = 1

// IsAdmin はこのユーザーが管理者かどうかを返す。
func (u *User) IsAdmin() bool {
	return u.ID == AdminUserID
}

// AvatarURL はGravatarのアバター画像URLを返す。
// 画像の生成・取得は外部のGravatarサービスに委譲する。
func (u *User) AvatarURL() string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(u.Email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=100&d=retro&r=g", sum)
}

// Session はユーザーのログインセッションを表す。
// IDは推測不能な不透明トークンで、Cookieには署名付きで渡す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
