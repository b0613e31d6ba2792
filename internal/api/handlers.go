package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sjsage522/opinionworker/helpers"
	"sjsage522/opinionworker/internal/product"
	"sjsage522/opinionworker/internal/stats"
	"sjsage522/opinionworker/internal/store"
	"sjsage522/opinionworker/pkg/errors"
)

const topPhrases = 10

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type productView struct {
	ID      string         `json:"product_id"`
	Name    string         `json:"product_name"`
	Stats   stats.Summary  `json:"stats"`
	TopPros []stats.Phrase `json:"top_pros"`
	TopCons []stats.Phrase `json:"top_cons"`
}

type extractionView struct {
	productView
	Pages      int           `json:"pages"`
	Failures   []failureView `json:"failures"`
	StopReason string        `json:"stop_reason,omitempty"`
}

type failureView struct {
	RecordID string `json:"opinion_id"`
	Page     int    `json:"page"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail"`
}

func newProductView(p *product.Product) productView {
	return productView{
		ID:      p.ID,
		Name:    p.Name,
		Stats:   p.Stats,
		TopPros: stats.TopPhrases(p.Stats.Pros, topPhrases),
		TopCons: stats.TopPhrases(p.Stats.Cons, topPhrases),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (s *Server) writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		s.log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// productID reads and validates the {id} parameter, writing a 400 when invalid
func (s *Server) productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := helpers.ValidateProductID(id); err != nil {
		s.writeProblem(w, http.StatusBadRequest, "Bad Request", "product id should have between 6 and 10 digits")
		return "", false
	}
	return id, true
}

func (s *Server) notExtracted(w http.ResponseWriter) {
	s.writeProblem(w, http.StatusNotFound, "Not Found", "product has not been extracted")
}

func (s *Server) storageProblem(w http.ResponseWriter, err error) {
	if store.IsNotFound(err) {
		s.notExtracted(w)
		return
	}
	s.log.Error().Err(err).Msg("storage failure")
	s.writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List()
	if err != nil {
		s.storageProblem(w, err)
		return
	}
	views := make([]productView, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.LoadMeta(id)
		if err != nil {
			s.log.Warn().Err(err).Str("product_id", id).Msg("skipping unreadable product")
			continue
		}
		views = append(views, newProductView(p))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	if !s.store.Exists(id) {
		s.notExtracted(w)
		return
	}
	p, err := s.store.LoadMeta(id)
	if err != nil {
		s.storageProblem(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProductView(p))
}

func (s *Server) getOpinions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	if !s.store.Exists(id) {
		s.notExtracted(w)
		return
	}
	p, err := s.store.Load(id)
	if err != nil {
		s.storageProblem(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p.Opinions)
}

func (s *Server) extractProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	result, err := s.extractor.Extract(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrorTypeFetch) && (result == nil || result.Pages == 0):
			s.writeProblem(w, http.StatusBadGateway, "Bad Gateway", err.Error())
		default:
			s.writeProblem(w, http.StatusUnprocessableEntity, "Extraction Failed", err.Error())
		}
		return
	}

	if err := s.store.Save(result.Product); err != nil {
		s.storageProblem(w, err)
		return
	}

	view := extractionView{
		productView: newProductView(result.Product),
		Pages:       result.Pages,
		Failures:    make([]failureView, 0, len(result.Failures)),
	}
	for _, f := range result.Failures {
		view.Failures = append(view.Failures, failureView{
			RecordID: f.RecordID,
			Page:     f.Page,
			Reason:   string(f.Reason),
			Detail:   f.Error(),
		})
	}
	if result.StopReason != nil {
		view.StopReason = result.StopReason.Error()
	}
	s.writeJSON(w, http.StatusOK, view)
}
