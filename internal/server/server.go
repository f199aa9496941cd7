// Package server exposes the review UI over HTTP.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/herbievine/42-job-listener/internal/review"
	"github.com/herbievine/42-job-listener/internal/store"

	"go.uber.org/zap"
)

//go:embed index.gohtml
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "index.gohtml"))

type Server struct {
	reviews *review.Service
	logger  *zap.Logger
}

func New(reviews *review.Service, logger *zap.Logger) *Server {
	return &Server{reviews: reviews, logger: logger}
}

// Handler builds the route table: the filtered review page and the two
// action endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /send/{id}", s.handleSend)
	mux.HandleFunc("POST /mark/{id}", s.handleMark)
	return mux
}

// ListenAndServe blocks serving the review UI until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("review ui listening", zap.String("addr", addr))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type offerView struct {
	ID               string
	Title            string
	Description      string
	Tags             []string
	To               string
	Subject          string
	Body             template.HTML
	HasDraft         bool
	Sent             bool
	SentFailedReason string
	RejectedReason   string
	RawJSON          string
	OfferURL         string
}

type indexView struct {
	Count  int
	Offers []offerView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		ID:    r.URL.Query().Get("id"),
		Email: r.URL.Query().Get("email"),
		Sent:  r.URL.Query().Get("sent"),
		Tag:   r.URL.Query().Get("tag"),
	}

	offers, err := s.reviews.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing offers", zap.Error(err))
		http.Error(w, "failed to list offers", http.StatusInternalServerError)
		return
	}

	view := indexView{Count: len(offers), Offers: make([]offerView, 0, len(offers))}
	for _, offer := range offers {
		view.Offers = append(view.Offers, newOfferView(offer))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, view); err != nil {
		s.logger.Error("rendering review page", zap.Error(err))
	}
}

func newOfferView(offer *store.Offer) offerView {
	v := offerView{
		ID:       offer.ID,
		Title:    offer.Title,
		Tags:     offer.Tags(),
		Sent:     offer.SentEmail,
		OfferURL: fmt.Sprintf("https://companies.intra.42.fr/en/offers/%s", offer.ID),
	}

	if offer.ProcessedDescription != nil {
		v.Description = *offer.ProcessedDescription
	}
	if offer.SentFailedReason != nil {
		v.SentFailedReason = *offer.SentFailedReason
	}
	if offer.RejectedReason != nil {
		v.RejectedReason = *offer.RejectedReason
	}

	if offer.EmailSubject != nil {
		v.HasDraft = true
		v.Subject = *offer.EmailSubject
		if offer.EmailTo != nil {
			v.To = *offer.EmailTo
		}
		if offer.EmailHTML != nil {
			v.Body = template.HTML(*offer.EmailHTML)
		}
		return v
	}

	raw, err := json.MarshalIndent(offer, "", "  ")
	if err == nil {
		v.RawJSON = string(raw)
	}

	return v
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reviews.Send(r.Context(), r.PathValue("id")))
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reviews.Mark(r.Context(), r.PathValue("id")))
}

func writeJSON(w http.ResponseWriter, result review.Result) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
