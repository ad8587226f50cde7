package testsupport

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// OracleRequest is the decoded form of one call to the fake oracle.
type OracleRequest struct {
	Model     string
	AccessKey string
	Texts     []string
	Images    [][]byte
}

// Prompt joins every text part of the request.
func (r OracleRequest) Prompt() string {
	return strings.Join(r.Texts, "\n")
}

// OracleReply is what the fake oracle answers with. A zero Status means 200.
type OracleReply struct {
	Status  int
	Content string
}

// OracleHandler decides the reply for one request.
type OracleHandler func(req OracleRequest) OracleReply

// FakeOracle is an httptest server speaking the oracle's generate protocol.
type FakeOracle struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []OracleRequest
}

// NewFakeOracle starts a scripted oracle server that is closed on test cleanup.
func NewFakeOracle(t testing.TB, handler OracleHandler) *FakeOracle {
	t.Helper()

	fake := &FakeOracle{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Contents struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req := OracleRequest{Model: r.Header.Get("model"), AccessKey: r.Header.Get("access-key")}
		for _, part := range body.Contents.Parts {
			if part.Text != "" {
				req.Texts = append(req.Texts, part.Text)
			}
			if part.InlineData != nil {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				req.Images = append(req.Images, data)
			}
		}
		fake.mu.Lock()
		fake.requests = append(fake.requests, req)
		fake.mu.Unlock()

		reply := handler(req)
		if reply.Status != 0 && reply.Status != http.StatusOK {
			http.Error(w, reply.Content, reply.Status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": reply.Content},
		})
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

// URL returns the generate endpoint of the fake.
func (f *FakeOracle) URL() string {
	return f.server.URL + "/generate"
}

// Requests returns a copy of the requests received so far.
func (f *FakeOracle) Requests() []OracleRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]OracleRequest(nil), f.requests...)
}

// ImageRequests counts requests that carried inline image data.
func (f *FakeOracle) ImageRequests() int {
	count := 0
	for _, req := range f.Requests() {
		if len(req.Images) > 0 {
			count++
		}
	}
	return count
}
