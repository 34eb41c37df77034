package store

import (
	"context"

	"gorm.io/gorm"

	"eventhub/internal/model"
	"eventhub/internal/tenancy"
	"eventhub/prometheus"
)

// EventStore reads and writes tenant-owned events, teams, submissions and
// evaluations. Every method relies on the tenant bound to ctx.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates an event store
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// ListEvents returns the events of the context's tenant
func (s *EventStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	defer prometheus.TrackDBOperation("query")()

	var events []model.Event
	if err := s.db.WithContext(ctx).Order("id").Find(&events).Error; err != nil {
		return nil, wrap("list events", err)
	}
	return events, nil
}

// ListEventsForTenant returns the events of any tenant. Reserved for
// superadmin routes.
func (s *EventStore) ListEventsForTenant(ctx context.Context, tenantID uint) ([]model.Event, error) {
	defer prometheus.TrackDBOperation("query")()

	var events []model.Event
	err := tenancy.Bypass(s.db.WithContext(ctx), "superadmin tenant event listing").
		Scopes(tenancy.ForTenant(tenantID)).
		Order("id").
		Find(&events).Error
	if err != nil {
		return nil, wrap("list events for tenant", err)
	}
	return events, nil
}

// GetEvent returns one event of the context's tenant
func (s *EventStore) GetEvent(ctx context.Context, id uint) (*model.Event, error) {
	defer prometheus.TrackDBOperation("query")()

	var event model.Event
	if err := s.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, wrap("get event", err)
	}
	return &event, nil
}

// CreateEvent stores a new event under the context's tenant
func (s *EventStore) CreateEvent(ctx context.Context, event *model.Event) error {
	defer prometheus.TrackDBOperation("create")()
	return wrap("create event", s.db.WithContext(ctx).Create(event).Error)
}

// GetTeam returns one team of the context's tenant
func (s *EventStore) GetTeam(ctx context.Context, id uint) (*model.Team, error) {
	defer prometheus.TrackDBOperation("query")()

	var team model.Team
	if err := s.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, wrap("get team", err)
	}
	return &team, nil
}

// CreateTeam stores a new team under the context's tenant
func (s *EventStore) CreateTeam(ctx context.Context, team *model.Team) error {
	defer prometheus.TrackDBOperation("create")()
	return wrap("create team", s.db.WithContext(ctx).Create(team).Error)
}

// RenameTeam changes a team's name
func (s *EventStore) RenameTeam(ctx context.Context, id uint, name string) (*model.Team, error) {
	defer prometheus.TrackDBOperation("update")()

	res := s.db.WithContext(ctx).Model(&model.Team{ID: id}).Update("name", name)
	if res.Error != nil {
		return nil, wrap("rename team", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap("rename team", ErrNotFound)
	}
	return s.GetTeam(ctx, id)
}

// IsOwner reports whether userID captains the team. It implements the
// ownership check of the authorizer for team routes.
func (s *EventStore) IsOwner(ctx context.Context, teamID, userID uint) (bool, error) {
	defer prometheus.TrackDBOperation("query")()

	var n int64
	err := s.db.WithContext(ctx).Model(&model.Team{}).
		Where("id = ? AND captain_id = ?", teamID, userID).
		Count(&n).Error
	if err != nil {
		return false, wrap("check team ownership", err)
	}
	return n > 0, nil
}

// ListSubmissions returns the submissions of a team
func (s *EventStore) ListSubmissions(ctx context.Context, teamID uint) ([]model.Submission, error) {
	defer prometheus.TrackDBOperation("query")()

	var subs []model.Submission
	if err := s.db.WithContext(ctx).Where("team_id = ?", teamID).Order("id").Find(&subs).Error; err != nil {
		return nil, wrap("list submissions", err)
	}
	return subs, nil
}

// CreateSubmission stores a submission for an existing team of the
// context's tenant
func (s *EventStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if _, err := s.GetTeam(ctx, sub.TeamID); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("create")()
	return wrap("create submission", s.db.WithContext(ctx).Create(sub).Error)
}

// CreateEvaluation stores an evaluation for an existing submission of the
// context's tenant
func (s *EventStore) CreateEvaluation(ctx context.Context, eval *model.Evaluation) error {
	defer prometheus.TrackDBOperation("create")()

	var sub model.Submission
	if err := s.db.WithContext(ctx).First(&sub, eval.SubmissionID).Error; err != nil {
		return wrap("find submission", err)
	}
	return wrap("create evaluation", s.db.WithContext(ctx).Create(eval).Error)
}
