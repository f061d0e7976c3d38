package common

import "time"

// Rejection records an input that was refused before entering the window,
// e.g. a NaN row in the dataset. The stream keeps running.
type Rejection struct {
	Reason string `json:"reason"`

	Source    string    `json:"src,omitempty"`
	TimeStamp time.Time `json:"ts"`
}

// StreamReset marks the datasource wrapping around to its beginning.
// Pass counts completed replays of the dataset.
type StreamReset struct {
	Pass int `json:"pass"`

	Source    string    `json:"src,omitempty"`
	TimeStamp time.Time `json:"ts"`
}
