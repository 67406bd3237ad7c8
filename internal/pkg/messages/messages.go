package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "WARDREP/"
	// Work queue name, the worker pool listens on it
	Work = st + "Work"
	// Transcribe job type
	Transcribe = "transcribe"
)

// TranscribeMessage asks to turn a stored voice note into text.
// ID is the voice artifact ID.
type TranscribeMessage struct {
	amessages.QueueMessage
	ReportID  int64  `json:"reportID"`
	FieldName string `json:"fieldName"`
	AudioRef  string `json:"audioRef"`
}

// NewTranscribeMessage creates message
func NewTranscribeMessage(artifactID string, reportID int64, fieldName, audioRef string) *TranscribeMessage {
	return &TranscribeMessage{QueueMessage: amessages.QueueMessage{ID: artifactID}, ReportID: reportID,
		FieldName: fieldName, AudioRef: audioRef}
}
