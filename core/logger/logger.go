package logger

import (
	"log/slog"
	"os"
	"strings"
)

var log *slog.Logger

func init() {
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) {
	log.Debug(msg, normalize(args)...)
}

func Info(msg string, args ...any) {
	log.Info(msg, normalize(args)...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, normalize(args)...)
}

func Error(msg string, args ...any) {
	log.Error(msg, normalize(args)...)
}

// normalize accepts either alternating key/value pairs or bare error values
// and produces a well-formed slog argument list.
func normalize(args []any) []any {
	out := make([]any, 0, len(args)+2)
	i := 0
	for i < len(args) {
		if err, ok := args[i].(error); ok {
			out = append(out, "error", err)
			i++
			continue
		}
		if i+1 < len(args) {
			out = append(out, args[i], args[i+1])
			i += 2
			continue
		}
		out = append(out, "value", args[i])
		i++
	}
	return out
}
