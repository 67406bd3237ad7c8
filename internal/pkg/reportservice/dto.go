package reportservice

import (
	"encoding/json"
	"time"

	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/utils"
)

type reportResult struct {
	ID            int64              `json:"id"`
	WardID        int64              `json:"ward_id"`
	SubmittedBy   int64              `json:"submitted_by"`
	Period        string             `json:"report_period"`
	Status        string             `json:"status"`
	SubmissionKey string             `json:"submission_key,omitempty"`
	DeclineReason string             `json:"decline_reason,omitempty"`
	ReviewedBy    int64              `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time         `json:"reviewed_at,omitempty"`
	Data          persistence.Fields `json:"report_data"`
	Created       time.Time          `json:"created_at"`
	Updated       time.Time          `json:"updated_at"`
	Replayed      bool               `json:"replayed,omitempty"`
	VoiceNotes    []*voiceResult     `json:"voice_notes,omitempty"`
}

type voiceResult struct {
	ID          string     `json:"id"`
	ReportID    int64      `json:"report_id"`
	FieldName   string     `json:"field_name"`
	FileName    string     `json:"file_name"`
	FileSize    int64      `json:"file_size"`
	Duration    int32      `json:"duration_seconds,omitempty"`
	Status      string     `json:"transcription_status"`
	Text        string     `json:"transcription_text,omitempty"`
	Error       string     `json:"transcription_error,omitempty"`
	Uploaded    time.Time  `json:"uploaded_at"`
	Transcribed *time.Time `json:"transcribed_at,omitempty"`
}

type formResult struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Version     int             `json:"version"`
	Status      string          `json:"status"`
	Definition  json.RawMessage `json:"definition"`
	CreatedBy   int64           `json:"created_by"`
	Created     time.Time       `json:"created_at"`
	Updated     time.Time       `json:"updated_at"`
	Deployed    *time.Time      `json:"deployed_at,omitempty"`
}

func toReportResult(r *persistence.Report, va []*persistence.VoiceArtifact) *reportResult {
	res := &reportResult{ID: r.ID, WardID: r.WardID, SubmittedBy: r.UserID, Period: r.Period, Status: r.Status.String(),
		SubmissionKey: utils.FromSQLStr(r.SubmissionKey), DeclineReason: utils.FromSQLStr(r.DeclineReason),
		ReviewedBy: r.ReviewedBy.Int64, ReviewedAt: utils.FromSQLTime(r.ReviewedAt), Data: r.Fields,
		Created: r.Created, Updated: r.Updated}
	for _, v := range va {
		res.VoiceNotes = append(res.VoiceNotes, toVoiceResult(v))
	}
	return res
}

func toReportResults(rs []*persistence.Report) []*reportResult {
	res := make([]*reportResult, 0, len(rs))
	for _, r := range rs {
		res = append(res, toReportResult(r, nil))
	}
	return res
}

func toVoiceResult(v *persistence.VoiceArtifact) *voiceResult {
	return &voiceResult{ID: v.ID, ReportID: v.ReportID, FieldName: v.FieldName, FileName: v.FileName,
		FileSize: v.FileSize, Duration: v.DurationSeconds.Int32, Status: v.Status.String(),
		Text: utils.FromSQLStr(v.Text), Error: utils.FromSQLStr(v.Error), Uploaded: v.Uploaded,
		Transcribed: utils.FromSQLTime(v.Transcribed)}
}

func toFormResult(f *persistence.Form) *formResult {
	return &formResult{ID: f.ID, Name: f.Name, Description: utils.FromSQLStr(f.Description), Version: f.Version,
		Status: f.Status.String(), Definition: f.Definition, CreatedBy: f.CreatedBy, Created: f.Created,
		Updated: f.Updated, Deployed: utils.FromSQLTime(f.Deployed)}
}
