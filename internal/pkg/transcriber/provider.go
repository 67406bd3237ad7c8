package transcriber

import (
	tapi "github.com/airenas/wardrep/internal/pkg/transcriber/api"
)

// StaticProvider returns one configured transcriber
type StaticProvider struct {
	tr tapi.Transcriber
}

// NewStaticProvider wraps transcriber, tr may be nil
func NewStaticProvider(tr tapi.Transcriber) *StaticProvider {
	return &StaticProvider{tr: tr}
}

// Get returns transcriber
func (sp *StaticProvider) Get() (tapi.Transcriber, error) {
	if sp.tr == nil {
		return nil, nil
	}
	return sp.tr, nil
}
