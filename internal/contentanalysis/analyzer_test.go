package contentanalysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"claimcheck/internal/contentanalysis"
	"claimcheck/internal/services"
	"claimcheck/internal/services/oracle"
	"claimcheck/internal/testsupport"
)

func TestParseScore(t *testing.T) {
	cases := []struct {
		raw   string
		want  int
		valid bool
	}{
		{`"92"`, 92, true},
		{`"92%"`, 92, true},
		{`92.7`, 92, true},
		{`80`, 80, true},
		{`" 7 percent"`, 7, true},
		{`"0"`, 0, true},
		{`"100"`, 100, true},
		{`"101"`, 0, false},
		{`-5`, 0, false},
		{`"high"`, 0, false},
		{`null`, 0, false},
		{``, 0, false},
	}
	for _, tc := range cases {
		got, ok := contentanalysis.ParseScore(json.RawMessage(tc.raw))
		if ok != tc.valid || got != tc.want {
			t.Fatalf("ParseScore(%s) = %d,%v want %d,%v", tc.raw, got, ok, tc.want, tc.valid)
		}
	}
}

func TestClassifyThreshold(t *testing.T) {
	for score := 0; score <= 100; score++ {
		s := score
		got, reason := contentanalysis.Classify(&s, 80)
		want := contentanalysis.Rejected
		if score >= 80 {
			want = contentanalysis.Authorized
		}
		if got != want {
			t.Fatalf("score %d: got %s want %s", score, got, want)
		}
		if want == contentanalysis.Rejected && reason != contentanalysis.BelowThresholdReason {
			t.Fatalf("score %d: unexpected reason %q", score, reason)
		}
	}
	if got, _ := contentanalysis.Classify(nil, 80); got != contentanalysis.Rejected {
		t.Fatalf("absent score must be rejected, got %s", got)
	}
}

func TestAnalyzeSendsImageAndClassifies(t *testing.T) {
	image := testsupport.JPEGWithCaptureTime(t, "2023:12:15 10:42:07")
	fake := testsupport.NewFakeOracle(t, func(req testsupport.OracleRequest) testsupport.OracleReply {
		return testsupport.OracleReply{Content: "``` json\n" + `{"ObjectName":"bicycle","AnalyzedImageDescription":"A red bicycle","MatchingPercentage":"92%"}` + "\n```"}
	})
	client := oracle.NewClient(oracle.Config{URL: fake.URL(), Model: "m", AccessKey: "k"})
	analyzer := contentanalysis.New(client, 0, nil)

	result, err := analyzer.Analyze(context.Background(), contentanalysis.Request{
		FileName:    "a.jpg",
		Image:       image,
		CoveredItem: "bicycle",
		Batch: []contentanalysis.Sibling{
			{FileName: "a.jpg", CaptureDate: "2023-12-15", Validation: "Valid"},
			{FileName: "b.jpg", CaptureDate: "2023-10-01", Validation: "StaleCapture"},
		},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Score == nil || *result.Score != 92 || result.Classification != contentanalysis.Authorized {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Relevance != "Relevant" || result.Description != "A red bicycle" {
		t.Fatalf("unexpected result %+v", result)
	}

	reqs := fake.Requests()
	if len(reqs) != 1 || len(reqs[0].Images) != 1 || string(reqs[0].Images[0]) != string(image) {
		t.Fatalf("expected the image to be sent inline, got %+v", reqs)
	}
	prompt := reqs[0].Prompt()
	if !strings.Contains(prompt, "The object name to check is bicycle.") || !strings.Contains(prompt, "b.jpg") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if strings.Contains(prompt, "- a.jpg") {
		t.Fatalf("prompt must not list the photo itself as a sibling: %q", prompt)
	}
}

func TestAnalyzeLowAndAbsentScores(t *testing.T) {
	replies := map[string]contentanalysis.Classification{
		`{"ObjectName":"car","MatchingPercentage":40}`:     contentanalysis.Rejected,
		`{"ObjectName":"car","MatchingPercentage":"n/a"}`:  contentanalysis.Rejected,
		`{"ObjectName":"car"}`:                             contentanalysis.Rejected,
		`{"ObjectName":"car","MatchingPercentage":"80"}`:   contentanalysis.Authorized,
		`{"ObjectName":"car","MatchingPercentage":"79.9"}`: contentanalysis.Rejected,
	}
	for reply, want := range replies {
		fake := testsupport.NewFakeOracle(t, func(testsupport.OracleRequest) testsupport.OracleReply {
			return testsupport.OracleReply{Content: reply}
		})
		analyzer := contentanalysis.New(oracle.NewClient(oracle.Config{URL: fake.URL(), Model: "m", AccessKey: "k"}), 80, nil)
		result, err := analyzer.Analyze(context.Background(), contentanalysis.Request{FileName: "x.jpg", Image: testsupport.JPEGWithoutExif(), CoveredItem: "car"})
		if err != nil {
			t.Fatalf("Analyze(%s): %v", reply, err)
		}
		if result.Classification != want {
			t.Fatalf("Analyze(%s) = %s want %s", reply, result.Classification, want)
		}
		if want == contentanalysis.Rejected && result.Reason != contentanalysis.BelowThresholdReason {
			t.Fatalf("unexpected reason %q", result.Reason)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	fake := testsupport.NewFakeOracle(t, func(req testsupport.OracleRequest) testsupport.OracleReply {
		if strings.Contains(req.Prompt(), "broken") {
			return testsupport.OracleReply{Status: 502, Content: "bad gateway"}
		}
		return testsupport.OracleReply{Content: "This image shows a bicycle."}
	})
	analyzer := contentanalysis.New(oracle.NewClient(oracle.Config{URL: fake.URL(), Model: "m", AccessKey: "k"}), 80, nil)

	_, err := analyzer.Analyze(context.Background(), contentanalysis.Request{Image: testsupport.JPEGWithoutExif(), CoveredItem: "broken"})
	if !errors.Is(err, services.ErrOracleCall) {
		t.Fatalf("expected ErrOracleCall, got %v", err)
	}
	_, err = analyzer.Analyze(context.Background(), contentanalysis.Request{Image: testsupport.JPEGWithoutExif(), CoveredItem: "bicycle"})
	if !errors.Is(err, services.ErrMalformedOracleResponse) {
		t.Fatalf("expected ErrMalformedOracleResponse, got %v", err)
	}
}
