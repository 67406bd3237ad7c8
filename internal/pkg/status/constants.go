package status

// Report represents report record status
type Report int

const (
	// Draft is an unfinalized report, at most one per ward and period
	Draft Report = iota + 1
	// Submitted - finalized report waiting for review
	Submitted
	// Reviewed - approved by a reviewer
	Reviewed
	// Declined - returned by a reviewer with a reason
	Declined
	// Flagged is set outside of this service
	Flagged
)

var (
	reportName = map[Report]string{Draft: "DRAFT", Submitted: "SUBMITTED", Reviewed: "REVIEWED",
		Declined: "DECLINED", Flagged: "FLAGGED"}
	nameReport = map[string]Report{"DRAFT": Draft, "SUBMITTED": Submitted, "REVIEWED": Reviewed,
		"DECLINED": Declined, "FLAGGED": Flagged}
)

func (st Report) String() string {
	return reportName[st]
}

// IsFinal returns true for non draft statuses
func (st Report) IsFinal() bool {
	return st >= Submitted && st <= Flagged
}

// ReportFrom returns status obj from string
func ReportFrom(st string) Report {
	return nameReport[st]
}

// Transcription represents voice artifact transcription status
type Transcription int

const (
	// Pending - stored, waiting for the worker
	Pending Transcription = iota + 1
	// Processing - worker has picked the artifact
	Processing
	// Done - text is available
	Done
	// Failed - final failure
	Failed
)

var (
	transcriptionName = map[Transcription]string{Pending: "PENDING", Processing: "PROCESSING", Done: "DONE",
		Failed: "FAILED"}
	nameTranscription = map[string]Transcription{"PENDING": Pending, "PROCESSING": Processing, "DONE": Done,
		"FAILED": Failed}
	transcriptionNext = map[Transcription][]Transcription{
		Pending:    {Processing, Failed},
		Processing: {Done, Failed},
	}
)

func (st Transcription) String() string {
	return transcriptionName[st]
}

// TranscriptionFrom returns status obj from string
func TranscriptionFrom(st string) Transcription {
	return nameTranscription[st]
}

// IsFinal returns true if no more transitions are possible
func (st Transcription) IsFinal() bool {
	return st == Done || st == Failed
}

// CanMoveTo checks if transition is allowed
func (st Transcription) CanMoveTo(next Transcription) bool {
	return contains(transcriptionNext[st], next)
}

// Form represents form definition status
type Form int

const (
	// FormDraft - editable form
	FormDraft Form = iota + 1
	// FormDeployed - the active form, at most one
	FormDeployed
	// FormArchived - retired form
	FormArchived
)

var (
	formName = map[Form]string{FormDraft: "DRAFT", FormDeployed: "DEPLOYED", FormArchived: "ARCHIVED"}
	nameForm = map[string]Form{"DRAFT": FormDraft, "DEPLOYED": FormDeployed, "ARCHIVED": FormArchived}
	formNext = map[Form][]Form{
		FormDraft:    {FormDeployed},
		FormDeployed: {FormArchived},
	}
)

func (st Form) String() string {
	return formName[st]
}

// FormFrom returns status obj from string
func FormFrom(st string) Form {
	return nameForm[st]
}

// CanMoveTo checks if transition is allowed
func (st Form) CanMoveTo(next Form) bool {
	return contains(formNext[st], next)
}

func contains[T comparable](s []T, v T) bool {
	for _, i := range s {
		if i == v {
			return true
		}
	}
	return false
}
