package api

const (
	// HeaderSubmissionID carries a client generated idempotency key of a finalize request
	HeaderSubmissionID = "X-Submission-ID"
	// HeaderWardID is set by the auth gateway
	HeaderWardID = "X-Ward-ID"
	// HeaderUserID is set by the auth gateway
	HeaderUserID = "X-User-ID"

	// PrmPeriod is a multipart param of report period
	PrmPeriod = "report_period"
	// PrmData is a multipart param of report fields JSON
	PrmData = "report_data"
	// PrmVoicePrefix prefixes multipart audio params, the rest of the name is a target field
	PrmVoicePrefix = "voice_"
	// PrmDurationPrefix prefixes optional audio duration params in seconds, e.g. duration_challenges
	PrmDurationPrefix = "duration_"
)
