package http

import (
	"net/http"
	"time"

	"garage/internal/core"
	"garage/internal/engine"
	"garage/internal/log"
)

type pieGeometry struct {
	CX, CY, R float64
}

var pie = pieGeometry{CX: engine.PieCenterX, CY: engine.PieCenterY, R: engine.PieRadius}

type dashboardPage struct {
	Portfolio    engine.Portfolio
	ProjectTypes []string
}

type projectPage struct {
	Summary    engine.ProjectSummary
	Categories []string
	Today      string
	Pie        pieGeometry
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := s.dashboardData(r)
	if err != nil {
		s.writePageError(w, r, err, log.OpRead)
		return
	}
	s.render(w, r, "index.html", data)
}

// handleDashboardPartial renders only the project lists and totals. The page
// reloads it on project:changed.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	data, err := s.dashboardData(r)
	if err != nil {
		s.writePageError(w, r, err, log.OpRead)
		return
	}
	s.render(w, r, "dashboard", data)
}

func (s *Server) dashboardData(r *http.Request) (dashboardPage, error) {
	pf, err := s.dashboard.Portfolio(r.Context(), currentUser(r))
	if err != nil {
		return dashboardPage{}, err
	}
	return dashboardPage{
		Portfolio:    pf,
		ProjectTypes: []string{core.TypeCarRebuild, "PC Build", "Furniture", "Other"},
	}, nil
}

func (s *Server) handleProjectDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	summary, err := s.dashboard.ProjectSummary(r.Context(), currentUser(r), id)
	if err != nil {
		s.writePageError(w, r, err, log.OpRead)
		return
	}
	s.render(w, r, "project.html", projectPage{
		Summary:    summary,
		Categories: core.DefaultCategories,
		Today:      s.now().Format(core.DateLayout),
		Pie:        pie,
	})
}

type reminderJSON struct {
	Kind   string `json:"kind"`
	Date   string `json:"date,omitempty"`
	Status string `json:"status"`
}

type categoryJSON struct {
	Name    string     `json:"name"`
	Amount  core.Money `json:"amount"`
	Percent int        `json:"percent"`
	Color   string     `json:"color"`
}

type summaryJSON struct {
	ProjectID       int64          `json:"project_id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	TotalExpenses   core.Money     `json:"total_expenses"`
	TotalInvestment core.Money     `json:"total_investment"`
	NetProfit       core.Money     `json:"net_profit"`
	ROI             float64        `json:"roi"`
	LatestActivity  time.Time      `json:"latest_activity"`
	ReminderStatus  string         `json:"reminder_status"`
	Reminders       []reminderJSON `json:"reminders,omitempty"`
	Categories      []categoryJSON `json:"categories"`
	DistanceKm      *int64         `json:"distance_km,omitempty"`
}

// handleProjectSummary exposes the derived figures of one project as JSON.
func (s *Server) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	summary, err := s.dashboard.ProjectSummary(r.Context(), currentUser(r), id)
	if err != nil {
		resp := s.errorResponse(r, err, log.ComponentDashboard, log.OpRead)
		writeJSON(w, resp.statusCode, map[string]string{"error": http.StatusText(resp.statusCode)})
		return
	}
	writeJSON(w, http.StatusOK, newSummaryJSON(summary))
}

func newSummaryJSON(s engine.ProjectSummary) summaryJSON {
	out := summaryJSON{
		ProjectID:       s.Project.ID,
		Name:            s.Project.Name,
		Type:            s.Project.Type,
		Status:          string(s.Project.Status),
		TotalExpenses:   s.TotalExpenses,
		TotalInvestment: s.TotalInvestment,
		NetProfit:       s.NetProfit,
		ROI:             s.ROI,
		LatestActivity:  s.LatestActivity,
		ReminderStatus:  string(s.ReminderStatus),
		Categories:      make([]categoryJSON, 0, len(s.Breakdown.Slices)),
	}
	for _, rem := range s.Reminders {
		rj := reminderJSON{Kind: string(rem.Kind), Status: string(rem.Status)}
		if !rem.Date.IsEmpty() {
			rj.Date = rem.Date.String()
		}
		out.Reminders = append(out.Reminders, rj)
	}
	for _, sl := range s.Breakdown.Slices {
		out.Categories = append(out.Categories, categoryJSON{
			Name: sl.Name, Amount: sl.Amount, Percent: sl.Percent, Color: sl.Color,
		})
	}
	if s.HasDistance {
		km := s.DistanceKm
		out.DistanceKm = &km
	}
	return out
}
