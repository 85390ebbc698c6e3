package dto

import "io"

// ReportDownload is an open report blob. The caller closes Body.
type ReportDownload struct {
	FileName  string
	SizeBytes int64
	Checksum  string
	Body      io.ReadCloser
}
