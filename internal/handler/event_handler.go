package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"eventhub/internal/middleware"
	"eventhub/internal/model"
	"eventhub/pkg/logger"
)

// EventRepository stores tenant-owned event data. Every call is scoped to
// the tenant bound to ctx.
type EventRepository interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id uint) (*model.Event, error)
	CreateEvent(ctx context.Context, event *model.Event) error
	GetTeam(ctx context.Context, id uint) (*model.Team, error)
	CreateTeam(ctx context.Context, team *model.Team) error
	RenameTeam(ctx context.Context, id uint, name string) (*model.Team, error)
	ListSubmissions(ctx context.Context, teamID uint) ([]model.Submission, error)
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	CreateEvaluation(ctx context.Context, eval *model.Evaluation) error
}

// EventHandler serves events, teams, submissions and evaluations
type EventHandler struct {
	repo EventRepository
}

// NewEventHandler creates an event handler
func NewEventHandler(repo EventRepository) *EventHandler {
	return &EventHandler{repo: repo}
}

// ListEvents returns the tenant's events
func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.repo.ListEvents(c.Request().Context())
	if err != nil {
		return storeError(c, err, "event")
	}
	return middleware.OK(c, http.StatusOK, events)
}

// GetEvent returns one event
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, ok := paramID(c, "event_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid event id")
	}
	event, err := h.repo.GetEvent(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "event")
	}
	return middleware.OK(c, http.StatusOK, event)
}

type createEventRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// CreateEvent creates an event in the tenant
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, err)
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return middleware.Fail(c, http.StatusBadRequest, "event ends before it starts")
	}
	identity, _ := middleware.IdentityFromEcho(c)

	event := &model.Event{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedBy:   identity.UserID(),
	}
	if err := h.repo.CreateEvent(c.Request().Context(), event); err != nil {
		return storeError(c, err, "event")
	}

	logger.FromEcho(c).Info("Event created", zap.Uint("event_id", event.ID))
	return middleware.OK(c, http.StatusCreated, event)
}

type createTeamRequest struct {
	EventID uint   `json:"event_id" validate:"required"`
	Name    string `json:"name" validate:"required,max=255"`
}

// CreateTeam creates a team captained by the caller
func (h *EventHandler) CreateTeam(c echo.Context) error {
	var req createTeamRequest
	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, err)
	}
	ctx := c.Request().Context()

	if _, err := h.repo.GetEvent(ctx, req.EventID); err != nil {
		return storeError(c, err, "event")
	}

	identity, _ := middleware.IdentityFromEcho(c)
	team := &model.Team{
		EventID:   req.EventID,
		Name:      req.Name,
		CaptainID: identity.UserID(),
	}
	if err := h.repo.CreateTeam(ctx, team); err != nil {
		return storeError(c, err, "team")
	}
	return middleware.OK(c, http.StatusCreated, team)
}

// GetTeam returns one team
func (h *EventHandler) GetTeam(c echo.Context) error {
	id, ok := paramID(c, "team_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid team id")
	}
	team, err := h.repo.GetTeam(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "team")
	}
	return middleware.OK(c, http.StatusOK, team)
}

type renameTeamRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// RenameTeam changes a team's name
func (h *EventHandler) RenameTeam(c echo.Context) error {
	id, ok := paramID(c, "team_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid team id")
	}
	var req renameTeamRequest
	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, err)
	}

	team, err := h.repo.RenameTeam(c.Request().Context(), id, req.Name)
	if err != nil {
		return storeError(c, err, "team")
	}
	return middleware.OK(c, http.StatusOK, team)
}

// ListSubmissions returns the submissions of a team
func (h *EventHandler) ListSubmissions(c echo.Context) error {
	id, ok := paramID(c, "team_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid team id")
	}
	subs, err := h.repo.ListSubmissions(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "submission")
	}
	return middleware.OK(c, http.StatusOK, subs)
}

type createSubmissionRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content"`
}

// CreateSubmission adds a submission to a team
func (h *EventHandler) CreateSubmission(c echo.Context) error {
	teamID, ok := paramID(c, "team_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid team id")
	}
	var req createSubmissionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, err)
	}

	identity, _ := middleware.IdentityFromEcho(c)
	sub := &model.Submission{
		TeamID:    teamID,
		Title:     req.Title,
		Content:   req.Content,
		CreatedBy: identity.UserID(),
	}
	if err := h.repo.CreateSubmission(c.Request().Context(), sub); err != nil {
		return storeError(c, err, "team")
	}
	return middleware.OK(c, http.StatusCreated, sub)
}

type createEvaluationRequest struct {
	Score   int    `json:"score" validate:"min=0,max=100"`
	Comment string `json:"comment"`
}

// CreateEvaluation scores a submission
func (h *EventHandler) CreateEvaluation(c echo.Context) error {
	subID, ok := paramID(c, "submission_id")
	if !ok {
		return middleware.Fail(c, http.StatusBadRequest, "invalid submission id")
	}
	var req createEvaluationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return invalidRequest(c, err)
	}

	identity, _ := middleware.IdentityFromEcho(c)
	eval := &model.Evaluation{
		SubmissionID: subID,
		EvaluatorID:  identity.UserID(),
		Score:        req.Score,
		Comment:      req.Comment,
	}
	if err := h.repo.CreateEvaluation(c.Request().Context(), eval); err != nil {
		return storeError(c, err, "submission")
	}
	return middleware.OK(c, http.StatusCreated, eval)
}
