package daemon_test

import (
	"testing"

	"claimcheck/internal/pipeline"
	"claimcheck/internal/testsupport"
)

func pipelineSubmission(t *testing.T) pipeline.Submission {
	t.Helper()
	return pipeline.Submission{
		Document: pipeline.File{Name: "claim.pdf", Data: testsupport.ClaimantDocument("CL 123 45", "2024-01-10", "bicycle")},
		Photos: []pipeline.File{
			{Name: "bike.jpg", Data: testsupport.JPEGWithCaptureTime(t, "2024:01:02 12:00:00")},
		},
	}
}
