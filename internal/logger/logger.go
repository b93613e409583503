// Package logger は構造化ログのセットアップを提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New は指定の出力先とレベルでJSON構造化ロガーを生成する。
// wがnilの場合は標準出力に書き込む。
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault はLOG_LEVEL環境変数からログレベルを決定し、
// JSONロガーをslogのデフォルトとして登録する。
func SetupDefault(w io.Writer) *slog.Logger {
	l := New(w, LevelFromEnv())
	slog.SetDefault(l)
	return l
}

// LevelFromEnv はLOG_LEVEL環境変数をslog.Levelに変換する。
func LevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel はレベル文字列をslog.Levelに変換する。
// 大文字小文字は区別せず、未設定や不明な値はInfoにフォールバックする。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
