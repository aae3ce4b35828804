package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "THROTTLE", "SETTING", "PROFILE", "SKIN", "DAEMON"
}

// Upload size caps, shared by the socket and HTTP surfaces.
const (
	MaxProfileBytes    = 10 << 20
	MaxSkinBytes       = 50 << 20
	MaxSkinUploadBytes = 10 << 20 // base64 HTTP uploads, decoded size
)
