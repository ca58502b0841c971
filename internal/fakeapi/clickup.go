package fakeapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type clickupStore struct {
	tasks    map[string]map[string]any
	lists    map[string][]string
	comments map[string][]map[string]any
}

func newClickUpStore() clickupStore {
	return clickupStore{
		tasks:    map[string]map[string]any{},
		lists:    map[string][]string{},
		comments: map[string][]map[string]any{},
	}
}

func (s *Server) clickupRoutes(r chi.Router) {
	r.Use(s.clickupAuth)
	r.Get("/team", s.listTeams)
	r.Get("/list/{list_id}/task", s.listTasks)
	r.Post("/list/{list_id}/task", s.createTask)
	r.Get("/task/{task_id}", s.getTask)
	r.Put("/task/{task_id}", s.updateTask)
	r.Delete("/task/{task_id}", s.deleteTask)
	r.Get("/task/{task_id}/comment", s.listComments)
	r.Post("/task/{task_id}/comment", s.createComment)
}

func (s *Server) clickupAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ClickUpToken != "" && r.Header.Get("Authorization") != s.cfg.ClickUpToken {
			writeJSON(w, http.StatusUnauthorized, clickupError("Token invalid", "OAUTH_025"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clickupError(msg, code string) map[string]string {
	return map[string]string{"err": msg, "ECODE": code}
}

func taskNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, clickupError("Task not found, deleted", "ITEM_017"))
}

// AddTask seeds a task into a list and returns its id.
func (s *Server) AddTask(listID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTask(listID, map[string]any{"name": name})
}

func (s *Server) insertTask(listID string, fields map[string]any) string {
	id := s.id()
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	task := copyObject(fields)
	task["id"] = id
	task["list"] = map[string]any{"id": listID}
	task["url"] = "https://app.clickup.com/t/" + id
	task["date_created"] = now
	task["date_updated"] = now
	if status, ok := fields["status"].(string); ok {
		task["status"] = map[string]any{"status": status}
	} else {
		task["status"] = map[string]any{"status": "to do"}
	}
	s.clickup.tasks[id] = task
	s.clickup.lists[listID] = append(s.clickup.lists[listID], id)
	return id
}

func (s *Server) listTeams(w http.ResponseWriter, r *http.Request) {
	teams := s.cfg.Teams
	if teams == nil {
		teams = []Team{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.clickup.lists[chi.URLParam(r, "list_id")]
	start, end := s.pageBounds(len(ids), page)
	tasks := make([]map[string]any, 0, end-start)
	for _, id := range ids[start:end] {
		tasks = append(tasks, s.clickup.tasks[id])
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "last_page": end >= len(ids)})
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, clickupError(err.Error(), "INPUT_001"))
		return
	}
	if name, _ := fields["name"].(string); name == "" {
		writeJSON(w, http.StatusBadRequest, clickupError("Task name invalid", "INPUT_005"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.insertTask(chi.URLParam(r, "list_id"), fields)
	writeJSON(w, http.StatusOK, s.clickup.tasks[id])
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.clickup.tasks[chi.URLParam(r, "task_id")]
	if !ok {
		taskNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, clickupError(err.Error(), "INPUT_001"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.clickup.tasks[chi.URLParam(r, "task_id")]
	if !ok {
		taskNotFound(w)
		return
	}
	for k, v := range fields {
		if k == "status" {
			v = map[string]any{"status": v}
		}
		task[k] = v
	}
	task["date_updated"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.clickup.tasks[id]
	if !ok {
		taskNotFound(w)
		return
	}
	listID, _ := task["list"].(map[string]any)["id"].(string)
	ids := s.clickup.lists[listID]
	for i, other := range ids {
		if other == id {
			s.clickup.lists[listID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	delete(s.clickup.tasks, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clickup.tasks[id]; !ok {
		taskNotFound(w)
		return
	}
	comments := s.clickup.comments[id]
	if comments == nil {
		comments = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, clickupError(err.Error(), "INPUT_001"))
		return
	}
	text, _ := fields["comment_text"].(string)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, clickupError("Comment text invalid", "INPUT_012"))
		return
	}

	id := chi.URLParam(r, "task_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clickup.tasks[id]; !ok {
		taskNotFound(w)
		return
	}
	comment := map[string]any{
		"id":           s.id(),
		"comment_text": text,
		"user":         map[string]any{"username": "patchbay"},
		"date":         strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	s.clickup.comments[id] = append(s.clickup.comments[id], comment)
	writeJSON(w, http.StatusOK, map[string]any{"id": comment["id"], "date": comment["date"]})
}
