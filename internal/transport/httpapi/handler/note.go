package handler

import (
	"net/http"

	"github.com/alsaadxx12/fly1234/internal/platform/note"
)

// maxNotes bounds a batch normalize request
const maxNotes = 1000

// NormalizeRequest carries one note or a batch
type NormalizeRequest struct {
	Text  string   `json:"text"`
	Texts []string `json:"texts,omitempty"`
}

// NormalizedNote is the parsed form of one note with its renderings
type NormalizedNote struct {
	*note.Note
	Matched    bool   `json:"matched"`
	Normalized string `json:"normalized"`
	HTML       string `json:"html"`
	Line       string `json:"line"`
}

// NormalizeResponse holds one result per input, in input order
type NormalizeResponse struct {
	Notes []NormalizedNote `json:"notes"`
}

// NormalizeNotes handles POST /notes/normalize. Parsing never fails, so any
// well-formed body answers 200.
func NormalizeNotes(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	texts := req.Texts
	if len(texts) == 0 {
		texts = []string{req.Text}
	}
	if len(texts) > maxNotes {
		respondError(w, "too many notes in one request", http.StatusBadRequest)
		return
	}

	out := make([]NormalizedNote, len(texts))
	for i, text := range texts {
		n := note.Parse(text)
		out[i] = NormalizedNote{
			Note:       n,
			Matched:    n.Matched(),
			Normalized: n.Normalized(),
			HTML:       n.Fragment(),
			Line:       n.Text(),
		}
	}
	respondJSON(w, NormalizeResponse{Notes: out}, http.StatusOK)
}
