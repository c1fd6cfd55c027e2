package domain

// Queue message constants for the v1 contract.
const (
	SchemaVersion = 1

	JobTypeOCRRequest   = "ocr.extract_text.requested"
	JobTypeOCRCompleted = "ocr.completed"

	ServiceSource = "jarvis-ocr-service"

	InputQueue = "jarvis.ocr.jobs"

	MinImagesPerJob = 1
	MaxImagesPerJob = 8
)

// RefKind tags the origin of an image reference.
type RefKind string

const (
	RefKindLocalPath RefKind = "local_path"
	RefKindS3        RefKind = "s3"
	RefKindMinIO     RefKind = "minio"
	RefKindDB        RefKind = "db"
)

// ImageRef points at a single image to be extracted. The resolver treats it
// as read-only.
type ImageRef struct {
	Kind  RefKind `json:"kind"`
	Value string  `json:"value"`
	Index int     `json:"index"`
}

// RequestOptions carries optional per-job knobs from the caller.
type RequestOptions struct {
	Language string `json:"language,omitempty"`
}

// RequestPayload is the payload of an ocr.extract_text.requested envelope.
// ImageCount may be omitted by the caller, in which case it is derived from
// the image_refs length at validation time.
type RequestPayload struct {
	ImageCount int             `json:"image_count"`
	ImageRefs  []ImageRef      `json:"image_refs"`
	Options    *RequestOptions `json:"options,omitempty"`
}

// Trace links the job back to the request that spawned it. Both fields are
// nullable by contract.
type Trace struct {
	RequestID   *string `json:"request_id"`
	ParentJobID *string `json:"parent_job_id"`
}

// JobEnvelope is an incoming queue message on jarvis.ocr.jobs.
type JobEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	JobID         string         `json:"job_id"`
	WorkflowID    string         `json:"workflow_id"`
	JobType       string         `json:"job_type"`
	Source        string         `json:"source"`
	Target        string         `json:"target"`
	CreatedAt     string         `json:"created_at"`
	Attempt       int            `json:"attempt"`
	ReplyTo       string         `json:"reply_to"`
	Payload       RequestPayload `json:"payload"`
	Trace         Trace          `json:"trace"`
}

// Language returns the job's language hint, falling back to def when the
// caller did not set one.
func (e *JobEnvelope) Language(def string) string {
	if e.Payload.Options != nil && e.Payload.Options.Language != "" {
		return e.Payload.Options.Language
	}
	return def
}

// CompletionStatus is the terminal outcome of a job.
type CompletionStatus string

const (
	StatusSuccess CompletionStatus = "success"
	StatusFailed  CompletionStatus = "failed"
)

// CompletionPayload is the payload of an ocr.completed envelope. Error is
// non-nil iff Status is StatusFailed.
type CompletionPayload struct {
	Status      CompletionStatus `json:"status"`
	Results     []ImageResult    `json:"results"`
	ArtifactRef *string          `json:"artifact_ref"`
	Error       *ErrorInfo       `json:"error"`
}

// CompletionEnvelope is the single terminal message emitted per job onto the
// caller's reply queue.
type CompletionEnvelope struct {
	SchemaVersion int               `json:"schema_version"`
	JobID         string            `json:"job_id"`
	WorkflowID    string            `json:"workflow_id"`
	JobType       string            `json:"job_type"`
	Source        string            `json:"source"`
	Target        string            `json:"target"`
	CreatedAt     string            `json:"created_at"`
	Attempt       int               `json:"attempt"`
	ReplyTo       *string           `json:"reply_to"`
	Payload       CompletionPayload `json:"payload"`
	Trace         Trace             `json:"trace"`
}
