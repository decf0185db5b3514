package loader

import (
	"fmt"
	"strings"
	"time"
)

// Loader job statuses.
const (
	StatusNotStarted                  = "LOAD_NOT_STARTED"
	StatusInQueue                     = "LOAD_IN_QUEUE"
	StatusInProgress                  = "LOAD_IN_PROGRESS"
	StatusCompleted                   = "LOAD_COMPLETED"
	StatusCancelledByUser             = "LOAD_CANCELLED_BY_USER"
	StatusCancelledDueToErrors        = "LOAD_CANCELLED_DUE_TO_ERRORS"
	StatusUnexpectedError             = "LOAD_UNEXPECTED_ERROR"
	StatusFailed                      = "LOAD_FAILED"
	StatusS3ReadError                 = "LOAD_S3_READ_ERROR"
	StatusS3AccessDenied              = "LOAD_S3_ACCESS_DENIED_ERROR"
	StatusCommittedWithWriteConflicts = "LOAD_COMMITTED_W_WRITE_CONFLICTS"
	StatusDataDeadlock                = "LOAD_DATA_DEADLOCK"
	StatusFeedModifiedOrDeleted       = "LOAD_DATA_FAILED_DUE_TO_FEED_MODIFIED_OR_DELETED"
	StatusDependencyNotSatisfied      = "LOAD_FAILED_BECAUSE_DEPENDENCY_NOT_SATISFIED"
	StatusInvalidRequest              = "LOAD_FAILED_INVALID_REQUEST"
)

// Overall is the overall status of a load job.
type Overall struct {
	Status                 string `json:"status"`
	FullURI                string `json:"fullUri"`
	RunNumber              int    `json:"runNumber"`
	RetryNumber            int    `json:"retryNumber"`
	TotalTimeSpent         int64  `json:"totalTimeSpent"`
	StartTime              int64  `json:"startTime"`
	TotalRecords           int64  `json:"totalRecords"`
	TotalDuplicates        int64  `json:"totalDuplicates"`
	ParsingErrors          int64  `json:"parsingErrors"`
	DatatypeMismatchErrors int64  `json:"datatypeMismatchErrors"`
	InsertErrors           int64  `json:"insertErrors"`
}

// Started returns the start time of the job.
func (o Overall) Started() time.Time {
	if o.StartTime == 0 {
		return time.Time{}
	}
	return time.Unix(o.StartTime, 0)
}

// Elapsed returns the time spent on the job.
func (o Overall) Elapsed() time.Duration {
	return time.Duration(o.TotalTimeSpent) * time.Second
}

// ErrorLog is one error reported for a load.
type ErrorLog struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	FileName     string `json:"fileName"`
	RecordNum    int64  `json:"recordNum"`
}

// Errors is a page of load errors.
type Errors struct {
	StartIndex int        `json:"startIndex"`
	EndIndex   int        `json:"endIndex"`
	LoadID     string     `json:"loadId"`
	ErrorLogs  []ErrorLog `json:"errorLogs"`
}

// Status is the status of a load job.
type Status struct {
	Overall   Overall            `json:"overallStatus"`
	FeedCount []map[string]int64 `json:"feedCount,omitempty"`
	Errors    *Errors            `json:"errors,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (s *Status) Terminal() bool { return Terminal(s.Overall.Status) }

// Terminal reports whether a status is final.
func Terminal(status string) bool {
	switch status {
	case StatusNotStarted, StatusInQueue, StatusInProgress:
		return false
	}
	return true
}

// Succeeded reports whether a status means the data was loaded.
func Succeeded(status string) bool { return status == StatusCompleted }

// Feeds summarises the feed counts as "LOAD_COMPLETED=3 LOAD_IN_PROGRESS=1".
func (s *Status) Feeds() string {
	var parts []string
	for _, fc := range s.FeedCount {
		for k, v := range fc {
			parts = append(parts, fmt.Sprintf("%s=%d", k, v))
		}
	}
	return strings.Join(parts, " ")
}
