// Package plog дает общий молчаливый логгер для пакетов движка.
// По умолчанию движок ничего не пишет; логгер передается через опции.
package plog

import (
	"context"
	"log/slog"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop возвращает логгер, который отбрасывает все записи.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

// OrNop возвращает l, а для nil возвращает Nop().
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
