package cv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/queue"
)

// Status is the lifecycle state of a CV document.
type Status string

const (
	// StatusRequested is the pre-confirm state: an upload slot was issued but
	// the client has not confirmed the bytes yet. No task exists.
	StatusRequested   Status = "requested"
	StatusQueued      Status = "queued"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusRequested, StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusShortlisted, StatusRejected:
		return st, true
	}
	return "", false
}

// HasMatch reports whether documents in this status carry match data.
func (s Status) HasMatch() bool {
	return s == StatusCompleted || s == StatusShortlisted || s == StatusRejected
}

// InFlight reports whether a worker may still be operating on the document.
func (s Status) InFlight() bool { return s == StatusQueued || s == StatusProcessing }

type Source string

const (
	SourceManualUpload Source = "manual_upload"
	SourceSmartApply   Source = "smartapply"
	SourceCopilot      Source = "copilot"
)

// FailureKind classifies a failure at the moment it happens so clients never
// have to guess retriability from the message text.
type FailureKind string

const (
	FailureUnreadable     FailureKind = "unreadable"
	FailureEmpty          FailureKind = "empty"
	FailureTooShort       FailureKind = "too_short"
	FailureCorrupt        FailureKind = "corrupt"
	FailureEncrypted      FailureKind = "encrypted"
	FailureUnsupported    FailureKind = "unsupported"
	FailureTooLarge       FailureKind = "too_large"
	FailureAnalysisFailed FailureKind = "analysis_failed"
	FailureTimeout        FailureKind = "timeout"
)

// Permanent failures are never offered a retry.
func (k FailureKind) Permanent() bool {
	switch k {
	case FailureAnalysisFailed, FailureTimeout:
		return false
	}
	return true
}

// Breakdown holds the component scores (0-100) before weighting.
type Breakdown struct {
	Skills         float64 `json:"skills"`
	Experience     float64 `json:"experience"`
	Qualifications float64 `json:"qualifications"`
	Projects       float64 `json:"projects"`
}

// Weights are percentages summing to 100.
type Weights struct {
	Skills         int `json:"skills"`
	Experience     int `json:"experience"`
	Qualifications int `json:"qualifications"`
	Projects       int `json:"projects"`
}

var DefaultWeights = Weights{Skills: 50, Experience: 30, Qualifications: 10, Projects: 10}

func (w Weights) Validate() error {
	if w.Skills < 0 || w.Experience < 0 || w.Qualifications < 0 || w.Projects < 0 {
		return ErrValidation("weights must be non-negative")
	}
	if sum := w.Skills + w.Experience + w.Qualifications + w.Projects; sum != 100 {
		return ErrValidation(fmt.Sprintf("weights must sum to 100, got %d", sum))
	}
	return nil
}

type MatchData struct {
	Score         float64   `json:"score"`
	MatchedSkills []string  `json:"matchedSkills"`
	MissingSkills []string  `json:"missingSkills"`
	Reasoning     string    `json:"reasoning"`
	Breakdown     Breakdown `json:"breakdown"`
	Weights       Weights   `json:"weights"`
	Model         string    `json:"model,omitempty"`
}

// Document is one uploaded candidate file and its derived parse/score state.
type Document struct {
	ID           uuid.UUID   `json:"id"`
	JobID        uuid.UUID   `json:"jobId"`
	UserID       uuid.UUID   `json:"userId"`
	Filename     string      `json:"filename"`
	ContentType  string      `json:"contentType"`
	S3Key        string      `json:"s3Key"`
	SizeBytes    int64       `json:"fileSizeBytes"`
	Status       Status      `json:"status"`
	ParsedText   string      `json:"parsedText,omitempty"`
	Match        *MatchData  `json:"matchData,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	FailureKind  FailureKind `json:"failureKind,omitempty"`
	Source       Source      `json:"source"`
	DeletedAt    *time.Time  `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	ProcessedAt  *time.Time  `json:"processedAt,omitempty"`
}

func (d Document) Deleted() bool { return d.DeletedAt != nil }

// Purgeable reports whether the row may be hard-deleted: tombstoned or never confirmed.
func Purgeable(d Document) bool { return d.Deleted() || d.Status == StatusRequested }

// Retriable reports whether an operator may re-enqueue a failed document.
func (d Document) Retriable() bool {
	return d.Status == StatusFailed && !d.FailureKind.Permanent()
}

var (
	ErrNotFound          = errors.New("cv not found")
	ErrAlreadyProcessed  = errors.New("cv already processed")
	ErrInvalidTransition = errors.New("invalid cv transition")
	ErrDuplicateKey      = errors.New("storage key already in use")
	ErrDeleted           = errors.New("cv deleted")
	ErrNotRetriable      = errors.New("cv failure is permanent")
)

// ErrValidation is a simple input validation error.
type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }

type Filter struct {
	JobID    uuid.UUID
	Status   Status
	Search   string
	Page     int
	PageSize int
}

func (f Filter) Normalize() Filter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = 20
	}
	return f
}

func (f Filter) Offset() int { return (f.Page - 1) * f.PageSize }

// Update describes a guarded transition. Match/ParsedText are only written when set.
type Update struct {
	To           Status
	Match        *MatchData
	ParsedText   *string
	FailureKind  FailureKind
	ErrorMessage string
	At           time.Time
}

// Repository is the persistence port for CV documents. Every method is a single
// atomic operation; counters on the owning batch move in the same step.
type Repository interface {
	Create(ctx context.Context, d Document) error
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	List(ctx context.Context, f Filter) ([]Document, int, error)
	// ConfirmUpload flips requested -> queued, stores t and bumps total_cvs.
	// For an already queued document it returns the existing task with created=false.
	ConfirmUpload(ctx context.Context, id uuid.UUID, t queue.Task) (d Document, task queue.Task, created bool, err error)
	// Transition applies upd when the current status is one of from and the
	// document is not tombstoned.
	Transition(ctx context.Context, id uuid.UUID, from []Status, upd Update) (Document, error)
	// MarkDeleted tombstones the document. Later transitions fail with ErrDeleted.
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) (Document, error)
	// MarkDeletedByJob tombstones every live document of a batch and returns them.
	MarkDeletedByJob(ctx context.Context, jobID uuid.UUID, at time.Time) ([]Document, error)
	// HardDelete removes a Purgeable row unless a non-terminal task references it.
	HardDelete(ctx context.Context, id uuid.UUID) (bool, error)
	// ListPurgeable returns tombstoned documents and requested documents created before cutoff.
	ListPurgeable(ctx context.Context, requestedBefore time.Time, limit int) ([]Document, error)
}

// Apply writes upd onto d. Callers check the guard first.
func (d *Document) Apply(upd Update) {
	at := upd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	d.Status = upd.To
	d.UpdatedAt = at
	if upd.Match != nil {
		m := *upd.Match
		d.Match = &m
	}
	if upd.ParsedText != nil {
		d.ParsedText = *upd.ParsedText
	}
	if upd.To == StatusFailed {
		d.ErrorMessage = upd.ErrorMessage
		d.FailureKind = upd.FailureKind
	} else {
		d.ErrorMessage = ""
		d.FailureKind = ""
	}
	if !upd.To.HasMatch() {
		d.Match = nil
	}
	if (upd.To == StatusCompleted || upd.To == StatusFailed) && d.ProcessedAt == nil {
		d.ProcessedAt = &at
	}
}

// CounterDeltas tells how batch counters move for a worker transition.
func CounterDeltas(from, to Status) (processed, failed int) {
	switch {
	case to == StatusCompleted && from == StatusProcessing:
		processed = 1
	case to == StatusFailed && from != StatusFailed:
		failed = 1
	case from == StatusFailed && to == StatusQueued:
		failed = -1
	}
	return processed, failed
}

// CheckUpdate enforces the match/error invariants for a target status.
func CheckUpdate(cur Document, upd Update) error {
	switch {
	case upd.To == StatusFailed && upd.ErrorMessage == "":
		return errors.New("failed status requires an error message")
	case upd.To.HasMatch() && upd.Match == nil && cur.Match == nil:
		return errors.New("status requires match data")
	}
	return nil
}
