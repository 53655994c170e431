package sl

import (
	"fmt"
	"log/slog"
)

const clipLength = 50

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret returns a string with the first 5 characters of the input string
// used to hide sensitive information in logs
func Secret(some string) slog.Attr {
	r := "***"
	if len(some) > 5 {
		r = fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		r = "?"
	}
	return slog.Attr{
		Key:   "secret",
		Value: slog.StringValue(r),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}

func User(userId int64) slog.Attr {
	return slog.Int64("user", userId)
}

// Clip keeps long message texts out of the logs
func Clip(key, text string) slog.Attr {
	r := []rune(text)
	if len(r) > clipLength {
		text = string(r[:clipLength]) + "..."
	}
	return slog.String(key, text)
}
