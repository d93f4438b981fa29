package http

import (
	"fmt"
	"net/http"

	"garage/internal/log"
)

func projectURL(id int64) string {
	return fmt.Sprintf("/projects/%d", id)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	proj, err := ParseProjectForm(p)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.projects.Create(r.Context(), currentUser(r), proj)
	if err != nil {
		s.errorResponse(r, err, log.ComponentProject, log.OpCreate).Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "Project created",
		log.FieldProjectID, created.ID,
		log.FieldOperation, log.OpCreate)

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerProjectChanged(created.ID).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Project %q created", created.Name)).
		WriteOrRedirect(w, r, projectURL(created.ID))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		NotFoundError("Project not found").Write(w)
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	proj, err := ParseProjectForm(p)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	proj.ID = id

	if _, err := s.projects.Update(r.Context(), currentUser(r), proj); err != nil {
		s.errorResponse(r, err, log.ComponentProject, log.OpUpdate).Write(w)
		return
	}

	NewHTMXResponse().
		TriggerProjectChanged(id).
		TriggerSuccessNotification("Project updated").
		WriteOrRedirect(w, r, projectURL(id))
}

func (s *Server) handleUpdateReminders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		NotFoundError("Project not found").Write(w)
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	d := ParseReminderForm(p)

	if _, err := s.projects.UpdateReminders(r.Context(), currentUser(r), id, d.Insurance, d.TechnicalCheck, d.Vignette); err != nil {
		s.errorResponse(r, err, log.ComponentProject, log.OpUpdate).Write(w)
		return
	}

	NewHTMXResponse().
		TriggerProjectChanged(id).
		TriggerSuccessNotification("Reminders saved").
		WriteOrRedirect(w, r, projectURL(id))
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		NotFoundError("Project not found").Write(w)
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}

	if _, err := s.projects.UpdateNotes(r.Context(), currentUser(r), id, p.Get("notes")); err != nil {
		s.errorResponse(r, err, log.ComponentProject, log.OpUpdate).Write(w)
		return
	}

	NewHTMXResponse().
		TriggerProjectChanged(id).
		TriggerSuccessNotification("Notes saved").
		WriteOrRedirect(w, r, projectURL(id))
}

// handleDeleteProject soft-deletes the project and sends the browser back to
// the dashboard.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		NotFoundError("Project not found").Write(w)
		return
	}

	if err := s.projects.Delete(r.Context(), currentUser(r), id); err != nil {
		s.errorResponse(r, err, log.ComponentProject, log.OpDelete).Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "Project deleted",
		log.FieldProjectID, id,
		log.FieldOperation, log.OpDelete)

	NewHTMXResponse().
		TriggerProjectChanged(id).
		TriggerSuccessNotification("Project deleted").
		Redirect("/").
		WriteOrRedirect(w, r, "/")
}
