package daemon

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"claimcheck/internal/api"
	"claimcheck/internal/capture"
	"claimcheck/internal/docanalysis"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/recency"
	"claimcheck/internal/textutil"
)

const multipartMemory = 32 << 20

// parseUpload parses a multipart body under the configured size limit.
func (s *apiServer) parseUpload(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes.", tooLarge.Limit))
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, "Request must be multipart/form-data.")
		return nil, false
	}
	return r.MultipartForm, true
}

func readFiles(headers []*multipart.FileHeader) ([]pipeline.File, error) {
	files := make([]pipeline.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, pipeline.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	docs := form.File["pdfFile"]
	images := form.File["images"]
	if len(docs) != 1 || len(images) == 0 {
		s.writeError(w, http.StatusBadRequest, "Please upload both PDF and images.")
		return
	}
	if s.maxImages > 0 && len(images) > s.maxImages {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("At most %d images are accepted.", s.maxImages))
		return
	}
	document, err := readFiles(docs)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	photos, err := readFiles(images)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := s.daemon.deps.Pipeline.Submit(r.Context(), pipeline.Submission{Document: document[0], Photos: photos})
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.RunAccepted{
		RunID:   ticket.RunID,
		Message: "Claim processing started.",
	})
}

func (s *apiServer) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.daemon.deps.Documents == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Document analysis is not configured.")
		return
	}
	form, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	docs := form.File["pdf"]
	if len(docs) != 1 {
		s.writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	files, err := readFiles(docs)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	facts, err := s.daemon.deps.Documents.Analyze(r.Context(), files[0].Data)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromFacts(facts))
}

func (s *apiServer) handleVerifyImages(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	images := form.File["images"]
	if len(images) == 0 {
		s.writeError(w, http.StatusBadRequest, "No files uploaded.")
		return
	}
	rawDate := ""
	if values := form.Value["claim_date"]; len(values) > 0 {
		rawDate = strings.TrimSpace(values[0])
	}
	claimDate, err := docanalysis.ParseClaimDate(rawDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "A valid claim_date is required.")
		return
	}
	files, err := readFiles(images)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	validator := recency.NewValidator(s.daemon.cfg.Adjudication.RecencyWindowDays)
	results := make([]api.ImageCheck, 0, len(files))
	for _, f := range files {
		captured := capture.Extract(f.Data)
		outcome := validator.Validate(captured, claimDate)
		results = append(results, api.ImageCheck{
			FileName:    textutil.SanitizeFileName(f.Name, "image"),
			CaptureDate: captured.String(),
			Validation:  string(outcome),
			Message:     outcome.Message(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.daemon.Health(r.Context())
	status := http.StatusOK
	if !health.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}
