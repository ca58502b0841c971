package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type hubspotStore struct {
	contacts map[string]map[string]any
	order    []string

	// associations maps "fromType/fromID/toType" to target ids.
	associations map[string][]string
}

func newHubSpotStore() hubspotStore {
	return hubspotStore{
		contacts:     map[string]map[string]any{},
		associations: map[string][]string{},
	}
}

func (s *Server) hubspotRoutes(r chi.Router) {
	r.Use(s.hubspotAuth)
	r.Get("/crm/v3/objects/contacts", s.listContacts)
	r.Post("/crm/v3/objects/contacts", s.createContact)
	r.Get("/crm/v3/objects/contacts/{id}", s.getContact)
	r.Patch("/crm/v3/objects/contacts/{id}", s.updateContact)
	r.Delete("/crm/v3/objects/contacts/{id}", s.deleteContact)
	r.Get("/crm/v4/objects/{from_type}/{from_id}/associations/{to_type}", s.listAssociations)
	r.Put("/crm/v4/objects/{from_type}/{from_id}/associations/default/{to_type}/{to_id}", s.createAssociation)
	r.Delete("/crm/v4/objects/{from_type}/{from_id}/associations/{to_type}/{to_id}", s.removeAssociation)
}

func (s *Server) hubspotAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.HubSpotToken != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.HubSpotToken {
			writeJSON(w, http.StatusUnauthorized, hubspotError("Authentication credentials not found.", "INVALID_AUTHENTICATION"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hubspotError(msg, category string) map[string]string {
	return map[string]string{"status": "error", "message": msg, "category": category}
}

func contactNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, hubspotError("Object not found.", "OBJECT_NOT_FOUND"))
}

// AddContact seeds a contact and returns its id.
func (s *Server) AddContact(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertContact(map[string]any{"email": email})
}

func (s *Server) insertContact(properties map[string]any) string {
	id := s.id()
	now := time.Now().UTC().Format(time.RFC3339)
	s.hubspot.contacts[id] = map[string]any{
		"id":         id,
		"properties": copyObject(properties),
		"createdAt":  now,
		"updatedAt":  now,
		"archived":   false,
	}
	s.hubspot.order = append(s.hubspot.order, id)
	return id
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("after"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > s.cfg.PageSize {
		limit = s.cfg.PageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.hubspot.order
	start := min(offset, len(ids))
	end := min(start+limit, len(ids))
	results := make([]map[string]any, 0, end-start)
	for _, id := range ids[start:end] {
		results = append(results, s.hubspot.contacts[id])
	}
	body := map[string]any{"results": results}
	if end < len(ids) {
		body["paging"] = map[string]any{"next": map[string]any{"after": strconv.Itoa(end)}}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, hubspotError(err.Error(), "VALIDATION_ERROR"))
		return
	}
	properties, _ := body["properties"].(map[string]any)

	s.mu.Lock()
	defer s.mu.Unlock()
	if email, _ := properties["email"].(string); email != "" {
		for _, id := range s.hubspot.order {
			existing, _ := s.hubspot.contacts[id]["properties"].(map[string]any)
			if existing["email"] == email {
				writeJSON(w, http.StatusConflict, hubspotError("Contact already exists. Existing ID: "+id, "CONFLICT"))
				return
			}
		}
	}
	id := s.insertContact(properties)
	writeJSON(w, http.StatusCreated, s.hubspot.contacts[id])
}

func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.hubspot.contacts[chi.URLParam(r, "id")]
	if !ok {
		contactNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, hubspotError(err.Error(), "VALIDATION_ERROR"))
		return
	}
	updates, _ := body["properties"].(map[string]any)

	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.hubspot.contacts[chi.URLParam(r, "id")]
	if !ok {
		contactNotFound(w)
		return
	}
	properties, _ := contact["properties"].(map[string]any)
	for k, v := range updates {
		properties[k] = v
	}
	contact["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, contact)
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hubspot.contacts[id]; !ok {
		contactNotFound(w)
		return
	}
	delete(s.hubspot.contacts, id)
	for i, other := range s.hubspot.order {
		if other == id {
			s.hubspot.order = append(s.hubspot.order[:i:i], s.hubspot.order[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func associationKey(r *http.Request) string {
	return strings.Join([]string{
		chi.URLParam(r, "from_type"),
		chi.URLParam(r, "from_id"),
		chi.URLParam(r, "to_type"),
	}, "/")
}

func (s *Server) listAssociations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := []map[string]any{}
	for _, id := range s.hubspot.associations[associationKey(r)] {
		n, _ := strconv.Atoi(id)
		results = append(results, map[string]any{
			"toObjectId": n,
			"associationTypes": []map[string]any{
				{"category": "HUBSPOT_DEFINED", "typeId": 1, "label": nil},
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) createAssociation(w http.ResponseWriter, r *http.Request) {
	key, to := associationKey(r), chi.URLParam(r, "to_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.hubspot.associations[key]
	found := false
	for _, id := range ids {
		found = found || id == to
	}
	if !found {
		s.hubspot.associations[key] = append(ids, to)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "COMPLETE",
		"results": []map[string]any{{
			"from": map[string]any{"id": chi.URLParam(r, "from_id")},
			"to":   map[string]any{"id": to},
		}},
	})
}

func (s *Server) removeAssociation(w http.ResponseWriter, r *http.Request) {
	key, to := associationKey(r), chi.URLParam(r, "to_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.hubspot.associations[key][:0:0]
	for _, id := range s.hubspot.associations[key] {
		if id != to {
			kept = append(kept, id)
		}
	}
	s.hubspot.associations[key] = kept
	w.WriteHeader(http.StatusNoContent)
}
