package logstream

import "time"

// Record is the broadcast unit: one structured log line attributed to a
// single worker. It is the wire format subscribers decode — the JSON
// field names below MUST NOT change without a subscriber-protocol bump.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	LoggerName string    `json:"logger_name"`
	Module     string    `json:"module"`
	FuncName   string    `json:"func_name"`
	LineNo     int       `json:"line_no"`
}
