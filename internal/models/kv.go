package models

import "time"

// KVEntry is a system-level key-value pair (API keys, operational flags).
type KVEntry struct {
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Version  int       `json:"version"`
	DateTime time.Time `json:"datetime"`
}
