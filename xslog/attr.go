package xslog

import (
	"log/slog"
	"time"
)

func Error(err error) slog.Attr {
	const errorKey = "err"
	return slog.String(errorKey, err.Error())
}

func Duration(d time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, d)
}

// Status is a session or connection status rendered with its String method.
func Status(s interface{ String() string }) slog.Attr {
	const statusKey = "status"
	return slog.String(statusKey, s.String())
}

func Value(v int) slog.Attr {
	const valueKey = "value"
	return slog.Int(valueKey, v)
}

func Attempt(n int) slog.Attr {
	const attemptKey = "attempt"
	return slog.Int(attemptKey, n)
}

func Addr(addr string) slog.Attr {
	const addrKey = "addr"
	return slog.String(addrKey, addr)
}
