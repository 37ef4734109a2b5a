package api

import (
	"net/http"
	"strings"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
)

// modelView adds the display price to a catalog model.
type modelView struct {
	catalog.Model
	Pricing string `json:"pricing"`
}

type modelsResponse struct {
	Provider string      `json:"provider"`
	Known    bool        `json:"known"`
	Models   []modelView `json:"models"`
}

// handleListProviders returns the provider catalog in display order.
func (s *Server) handleListProviders(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Providers())
}

// handleListModels returns the models offered for ?provider=, fuzzy filtered
// by ?q= when set. Unknown providers get the fallback suggestions.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	provider := strings.TrimSpace(r.URL.Query().Get("provider"))
	if provider == "" {
		provider = catalog.ProviderAnthropic
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var models []catalog.Model
	if query != "" {
		models = s.catalog.Search(provider, query)
	} else {
		models = s.catalog.ModelsFor(provider)
	}

	views := make([]modelView, 0, len(models))
	for _, m := range models {
		views = append(views, modelView{Model: m, Pricing: m.PricingLabel()})
	}
	_, known := s.catalog.Lookup(provider)
	respondJSON(w, http.StatusOK, modelsResponse{Provider: provider, Known: known, Models: views})
}
