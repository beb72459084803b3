package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Mihuashi/match"
)

// envelope is the wire format of every response:
// {"status": "ok"|"fail", "error": [...], "method": ..., "result": [...]}.
type envelope struct {
	Status string   `json:"status"`
	Error  []string `json:"error"`
	Method string   `json:"method"`
	Result any      `json:"result"`
}

// searchResult is one entry of a search response.
type searchResult struct {
	Score    float64        `json:"score"`
	Filepath string         `json:"filepath"`
	Metadata map[string]any `json:"metadata"`
}

type server struct {
	m      *match.Match
	logger *match.Logger
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	if env.Error == nil {
		env.Error = []string{}
	}
	if env.Result == nil {
		env.Result = []any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func (s *server) ok(w http.ResponseWriter, method string, result any) {
	writeEnvelope(w, http.StatusOK, envelope{Status: "ok", Method: method, Result: result})
}

// fail maps core failures onto HTTP statuses: undecodable or unfetchable
// input is the client's fault, everything else is ours.
func (s *server) fail(w http.ResponseWriter, method string, err error) {
	status := http.StatusInternalServerError
	var decodeErr *match.DecodeError
	if errors.As(err, &decodeErr) {
		status = http.StatusBadRequest
	}
	writeEnvelope(w, status, envelope{Status: "fail", Method: method, Error: []string{err.Error()}})
}

// imageSource builds an ImageSource from the request form: a url field
// takes precedence, otherwise the named file upload is read.
func imageSource(r *http.Request, urlField, fileField string) (match.ImageSource, error) {
	if ref := r.FormValue(urlField); ref != "" {
		return match.FromRef(ref), nil
	}
	file, _, err := r.FormFile(fileField)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return match.FromBytes(data), nil
}

func (s *server) handleAdd(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("filepath")
	if path == "" {
		writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "add", Error: []string{"missing filepath"}})
		return
	}

	var metadata map[string]any
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "add", Error: []string{"invalid metadata: " + err.Error()}})
			return
		}
	}

	src, err := imageSource(r, "url", "image")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "add", Error: []string{"missing image: " + err.Error()}})
		return
	}

	if _, err := s.m.Add(r.Context(), path, src, metadata); err != nil {
		s.fail(w, "add", err)
		return
	}
	s.ok(w, "add", nil)
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("filepath")
	if path == "" {
		writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "delete", Error: []string{"missing filepath"}})
		return
	}
	if err := s.m.Delete(r.Context(), path); err != nil {
		s.fail(w, "delete", err)
		return
	}
	s.ok(w, "delete", nil)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	src, err := imageSource(r, "url", "image")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "search", Error: []string{"missing image: " + err.Error()}})
		return
	}

	sb := s.m.Search(src)
	if v := r.FormValue("all_orientations"); v != "" {
		sb.AllOrientations(v == "true")
	}
	if v := r.FormValue("cutoff"); v != "" {
		cutoff, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "search", Error: []string{"invalid cutoff"}})
			return
		}
		sb.Cutoff(cutoff)
	}

	results, err := sb.Execute(r.Context())
	if err != nil {
		s.fail(w, "search", err)
		return
	}

	out := make([]searchResult, 0, len(results))
	for _, m := range results {
		out = append(out, searchResult{
			Score:    m.Score,
			Filepath: m.Path,
			Metadata: m.Metadata,
		})
	}
	s.ok(w, "search", out)
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	a, err := imageSource(r, "url1", "image1")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "compare", Error: []string{"missing first image: " + err.Error()}})
		return
	}
	b, err := imageSource(r, "url2", "image2")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Status: "fail", Method: "compare", Error: []string{"missing second image: " + err.Error()}})
		return
	}

	score, err := s.m.Compare(r.Context(), a, b)
	if err != nil {
		s.fail(w, "compare", err)
		return
	}
	s.ok(w, "compare", []map[string]float64{{"score": score}})
}

func (s *server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.m.Count(r.Context())
	if err != nil {
		s.fail(w, "count", err)
		return
	}
	s.ok(w, "count", []uint64{n})
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	offset := formInt(r, "offset", 0)
	limit := formInt(r, "limit", 20)

	paths, err := s.m.List(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	s.ok(w, "list", paths)
}

func (s *server) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := s.m.Ping(r.Context()); err != nil {
		s.fail(w, "ping", err)
		return
	}
	s.ok(w, "ping", nil)
}

func formInt(r *http.Request, field string, def int) int {
	v := r.FormValue(field)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
