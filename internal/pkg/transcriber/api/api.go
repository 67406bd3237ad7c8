package api

import (
	"context"
	"io"
)

// Transcriber turns audio into plain text
type Transcriber interface {
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error)
}

// Response of a speech to text backend
type Response struct {
	Text string `json:"text"`
}

const (
	// PrmFile is a multipart file param name
	PrmFile = "file"
	// PrmModel is a model name param
	PrmModel = "model"
	// PrmFormat is a response format param
	PrmFormat = "response_format"
)

// Provider returns currently available transcriber, nil if none is configured
type Provider interface {
	Get() (Transcriber, error)
}
