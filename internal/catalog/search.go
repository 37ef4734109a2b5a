package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// modelSource adapts a model list to fuzzy.Source, matching on id and name.
type modelSource []Model

func (s modelSource) String(i int) string {
	return s[i].ID + " " + s[i].Name
}

func (s modelSource) Len() int {
	return len(s)
}

// Search returns the models offered for providerID that fuzzy-match query,
// best match first. An empty query returns the full list.
func (c *Catalog) Search(providerID, query string) []Model {
	models := c.ModelsFor(providerID)
	query = strings.TrimSpace(query)
	if query == "" {
		return models
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), lowered(models))
	out := make([]Model, 0, len(matches))
	for _, m := range matches {
		out = append(out, models[m.Index])
	}
	return out
}

func lowered(models []Model) modelSource {
	out := make(modelSource, len(models))
	for i, m := range models {
		out[i] = Model{ID: strings.ToLower(m.ID), Name: strings.ToLower(m.Name)}
	}
	return out
}
