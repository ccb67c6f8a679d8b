package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	jlog "github.com/luno/jettison/log"
)

// JSONLogger writes one JSON object per line.
type JSONLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *JSONLogger) Log(_ context.Context, e jlog.Entry) string {
	res, err := json.Marshal(e)
	if err != nil {
		// Fall back to the bare message so the line is not lost.
		res, _ = json.Marshal(map[string]string{
			"message":       e.Message,
			"marshal_error": err.Error(),
		})
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(res, '\n'))
	return string(res)
}

func InitLogging() {
	jlog.SetLogger(&JSONLogger{w: os.Stdout})
}
