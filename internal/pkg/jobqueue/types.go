package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeResolutionMail JobType = "resolution_mail"
	JobTypeAssignmentMail JobType = "assignment_mail"
	JobTypeImageDelete    JobType = "image_delete"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// IssueMailPayload identifies the issue and the profile a notification goes to.
type IssueMailPayload struct {
	IssueID     string `json:"issue_id"`
	RecipientID string `json:"recipient_id"`
}

func (p IssueMailPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"issue_id":     p.IssueID,
		"recipient_id": p.RecipientID,
	}
}

func IssueMailPayloadFromMap(data map[string]interface{}) (*IssueMailPayload, error) {
	var payload IssueMailPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// ImageDeletePayload names an object that has to be removed from image storage.
type ImageDeletePayload struct {
	Key string `json:"key"`
}

func (p ImageDeletePayload) ToMap() map[string]interface{} {
	return map[string]interface{}{"key": p.Key}
}

func ImageDeletePayloadFromMap(data map[string]interface{}) (*ImageDeletePayload, error) {
	var payload ImageDeletePayload
	err := decodePayload(data, &payload)
	return &payload, err
}

func decodePayload(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
