package models

import "io"

// CredentialsFile is the service account key uploaded with a submission.
// ContentType is the declared MIME type; Size is the declared size in bytes.
// DetectedType is the sniffed type of the content, when known, and is only
// advisory.
type CredentialsFile struct {
	Name         string
	ContentType  string
	DetectedType string
	Size         int64
	Content      io.Reader
}

// AnalysisSubmission is the payload of POST /analyze.
type AnalysisSubmission struct {
	Query           string
	UserID          string
	CredentialsFile *CredentialsFile
	DownloadData    bool
}

// ProgressFunc receives advisory progress milestones in percent.
type ProgressFunc func(percentage int, message string)
