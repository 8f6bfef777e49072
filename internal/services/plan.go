package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/data/repos"
	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/apperr"
	"github.com/yungbote/dermatrack-backend/internal/pkg/ctxutil"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/pkg/pgerr"
	"github.com/yungbote/dermatrack-backend/internal/treatment"
)

// PlanStatus is the review-progress view of a plan.
type PlanStatus struct {
	Plan          *types.TreatmentPlan `json:"plan"`
	CurrentDay    int                  `json:"current_day"`
	TotalDays     int                  `json:"total_days"`
	GeneratedDays int                  `json:"generated_days"`
	ReviewedDays  int                  `json:"reviewed_days"`
	Completed     bool                 `json:"completed"`
}

// PlanService drives the treatment-plan lifecycle: prerequisite-gated
// start, idempotent per-day review, and status. Review never double-writes:
// feedback is a NULL-to-value transition and the cursor a compare-and-swap,
// so a concurrent duplicate loses cleanly.
type PlanService interface {
	Start(ctx context.Context) (*types.TreatmentPlan, error)
	Review(ctx context.Context, day int, feedback string, notes string) (*types.TreatmentDay, error)
	Status(ctx context.Context) (*PlanStatus, error)
}

type planService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          treatment.Config
	generator    *treatment.Generator
	planRepo     repos.TreatmentPlanRepo
	levelSetRepo repos.AcneLevelSetRepo
	userInfoRepo repos.UserInfoRepo
}

func NewPlanService(
	db *gorm.DB,
	log *logger.Logger,
	cfg treatment.Config,
	generator *treatment.Generator,
	planRepo repos.TreatmentPlanRepo,
	levelSetRepo repos.AcneLevelSetRepo,
	userInfoRepo repos.UserInfoRepo,
) PlanService {
	return &planService{
		db:           db,
		log:          log.With("service", "PlanService"),
		cfg:          cfg,
		generator:    generator,
		planRepo:     planRepo,
		levelSetRepo: levelSetRepo,
		userInfoRepo: userInfoRepo,
	}
}

func (s *planService) Start(ctx context.Context) (*types.TreatmentPlan, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	dbc := dbctx.Context{Ctx: ctx}

	existing, err := s.planRepo.GetByUserID(dbc, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch plan: %v", err)
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.KindAlreadyStarted, "treatment plan already started")
	}

	info, err := s.userInfoRepo.GetByUserID(dbc, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch user info: %v", err)
	}
	if info == nil {
		return nil, apperr.Newf(apperr.KindPrerequisiteMissing, "questionnaire not completed")
	}
	levelSet, err := s.levelSetRepo.GetByUserID(dbc, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch level set: %v", err)
	}
	if levelSet == nil {
		return nil, apperr.Newf(apperr.KindPrerequisiteMissing, "acne analysis not completed")
	}

	severity := treatment.Severity(levelSet.OverallSeverity)
	dominantArea := dominantAreaOf(levelSet)
	profile := profileFromInfo(info)

	system := treatment.SystemPrompt(severity)
	var days []*types.TreatmentDay
	switch s.cfg.Mode {
	case treatment.ModeBatch:
		user := treatment.BuildBatchPrompt(severity, dominantArea, profile, s.cfg.MaxDays)
		generated, err := s.generator.GenerateBatch(ctx, system, user, s.cfg.MaxDays)
		if err != nil {
			return nil, generationError(err)
		}
		days = make([]*types.TreatmentDay, 0, len(generated))
		for _, g := range generated {
			days = append(days, dayFromGenerated(&g))
		}
	default:
		user := treatment.BuildFirstDayPrompt(severity, dominantArea, profile)
		g, err := s.generator.GenerateDay(ctx, system, user, 1)
		if err != nil {
			return nil, generationError(err)
		}
		days = []*types.TreatmentDay{dayFromGenerated(g)}
	}

	plan := &types.TreatmentPlan{
		ID:                     uuid.New(),
		UserID:                 rd.UserID,
		OverallSeverity:        string(severity),
		DominantArea:           dominantArea,
		QuestionnaireCompleted: true,
		AcneAnalysisCompleted:  true,
		GenerationMode:         string(s.cfg.Mode),
		MaxDays:                s.cfg.MaxDays,
		CurrentDay:             1,
	}
	created, err := s.planRepo.CreateWithDays(dbc, plan, days)
	if err != nil {
		if errors.Is(err, repos.ErrPlanExists) {
			return nil, apperr.Newf(apperr.KindAlreadyStarted, "treatment plan already started")
		}
		return nil, apperr.Newf(apperr.KindInternal, "store plan: %v", err)
	}
	s.log.Info("Treatment plan started",
		"user_id", rd.UserID,
		"mode", plan.GenerationMode,
		"severity", plan.OverallSeverity,
		"days", len(days),
	)
	return created, nil
}

func (s *planService) Review(ctx context.Context, day int, feedback string, notes string) (*types.TreatmentDay, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	if feedback != types.FeedbackPositive && feedback != types.FeedbackNegative {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "feedback must be positive or negative")
	}
	dbc := dbctx.Context{Ctx: ctx}

	plan, err := s.planRepo.GetByUserID(dbc, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch plan: %v", err)
	}
	if plan == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "no treatment plan")
	}
	maxDays := s.planCap(plan)
	if plan.CurrentDay > maxDays {
		return nil, apperr.Newf(apperr.KindCapReached, "plan complete at day %d", maxDays)
	}
	if day != plan.CurrentDay {
		return nil, apperr.Newf(apperr.KindDayMismatch, "review day %d but current day is %d", day, plan.CurrentDay)
	}

	// A crash between cursor advance and append can leave the current day
	// missing in incremental mode; regenerate it before accepting feedback.
	if err := s.ensureDayExists(ctx, plan, day); err != nil {
		return nil, err
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}
	summary := reviewSummary(day, feedback)
	wrote, err := s.setDayFeedback(dbc, plan.ID, day, feedback, notesPtr, summary)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "record feedback: %v", err)
	}
	if !wrote {
		return nil, apperr.Newf(apperr.KindAlreadyReviewed, "day %d already reviewed", day)
	}
	advanced, err := s.advanceCursor(dbc, plan.ID, day)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "advance cursor: %v", err)
	}
	if !advanced {
		// Feedback landed but another review moved the cursor first.
		return nil, apperr.Newf(apperr.KindConflict, "concurrent review detected for day %d", day)
	}

	if treatment.GenerationMode(plan.GenerationMode) == treatment.ModeIncremental && day < maxDays {
		next, err := s.generateNextDay(ctx, plan, day, feedback, notes)
		if err != nil {
			// Cursor already advanced; the next review call self-heals the
			// missing day, so surface this as retryable.
			s.log.Warn("Next-day generation failed after review", "plan_id", plan.ID, "day", day, "error", err)
			return nil, err
		}
		s.log.Info("Appended next plan day", "plan_id", plan.ID, "day", next.DayNumber)
	}

	reviewed, err := s.planRepo.GetDay(dbc, plan.ID, day)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "reload day: %v", err)
	}
	return reviewed, nil
}

func (s *planService) Status(ctx context.Context) (*PlanStatus, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	dbc := dbctx.Context{Ctx: ctx}
	plan, err := s.planRepo.GetByUserID(dbc, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch plan: %v", err)
	}
	if plan == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "no treatment plan")
	}
	reviewed := 0
	for i := range plan.Days {
		if plan.Days[i].Reviewed() {
			reviewed++
		}
	}
	generated, err := s.planRepo.MaxDayNumber(dbc, plan.ID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "count generated days: %v", err)
	}
	maxDays := s.planCap(plan)
	return &PlanStatus{
		Plan:          plan,
		CurrentDay:    plan.CurrentDay,
		TotalDays:     maxDays,
		GeneratedDays: generated,
		ReviewedDays:  reviewed,
		Completed:     plan.CurrentDay > maxDays,
	}, nil
}

// planCap is the day cap the plan runs under: the one persisted at start,
// or the configured cap for rows that predate the max_days column.
func (s *planService) planCap(plan *types.TreatmentPlan) int {
	if plan.MaxDays > 0 {
		return plan.MaxDays
	}
	return s.cfg.MaxDays
}

// setDayFeedback and advanceCursor retry once when Postgres reports a
// transient serialization or deadlock failure; both writes are conditional,
// so a replay after a lost race simply reports zero rows.
func (s *planService) setDayFeedback(dbc dbctx.Context, planID uuid.UUID, day int, feedback string, notes *string, review string) (bool, error) {
	wrote, err := s.planRepo.SetDayFeedback(dbc, planID, day, feedback, notes, review)
	if err != nil && pgerr.IsRetryable(err) {
		s.log.Warn("Retrying feedback write after transient failure", "plan_id", planID, "day", day, "error", err)
		return s.planRepo.SetDayFeedback(dbc, planID, day, feedback, notes, review)
	}
	return wrote, err
}

func (s *planService) advanceCursor(dbc dbctx.Context, planID uuid.UUID, fromDay int) (bool, error) {
	advanced, err := s.planRepo.AdvanceCursor(dbc, planID, fromDay)
	if err != nil && pgerr.IsRetryable(err) {
		s.log.Warn("Retrying cursor advance after transient failure", "plan_id", planID, "day", fromDay, "error", err)
		return s.planRepo.AdvanceCursor(dbc, planID, fromDay)
	}
	return advanced, err
}

// reviewSummary is the short derived recap stored on the reviewed day.
func reviewSummary(day int, feedback string) string {
	if feedback == types.FeedbackNegative {
		return fmt.Sprintf("Day %d flagged as irritating; the next day reduces active strength and substitutes gentler alternatives.", day)
	}
	return fmt.Sprintf("Day %d tolerated well; the next day continues a similar routine.", day)
}

// ensureDayExists self-heals an incremental plan whose cursor day entry was
// lost between cursor advance and append.
func (s *planService) ensureDayExists(ctx context.Context, plan *types.TreatmentPlan, day int) error {
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := s.planRepo.GetDay(dbc, plan.ID, day)
	if err != nil {
		return apperr.Newf(apperr.KindInternal, "fetch day: %v", err)
	}
	if existing != nil {
		return nil
	}
	if treatment.GenerationMode(plan.GenerationMode) != treatment.ModeIncremental || day < 2 {
		return apperr.Newf(apperr.KindNotFound, "plan day %d missing", day)
	}
	prevDay, err := s.planRepo.GetDay(dbc, plan.ID, day-1)
	if err != nil {
		return apperr.Newf(apperr.KindInternal, "fetch previous day: %v", err)
	}
	if prevDay == nil || !prevDay.Reviewed() {
		return apperr.Newf(apperr.KindNotFound, "plan day %d missing", day)
	}
	prevNotes := ""
	if prevDay.Notes != nil {
		prevNotes = *prevDay.Notes
	}
	if _, err := s.generateNextDay(ctx, plan, day-1, *prevDay.Feedback, prevNotes); err != nil {
		return err
	}
	s.log.Info("Regenerated missing plan day", "plan_id", plan.ID, "day", day)
	return nil
}

// generateNextDay builds day reviewedDay+1 from the reviewed day's routine
// and feedback, then appends it. Appending an already-present day is not an
// error: the existing entry wins.
func (s *planService) generateNextDay(ctx context.Context, plan *types.TreatmentPlan, reviewedDay int, feedback string, notes string) (*types.TreatmentDay, error) {
	dbc := dbctx.Context{Ctx: ctx}
	prev, err := s.planRepo.GetDay(dbc, plan.ID, reviewedDay)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch reviewed day: %v", err)
	}
	if prev == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "plan day %d missing", reviewedDay)
	}

	profile := treatment.UserProfile{}
	if info, err := s.userInfoRepo.GetByUserID(dbc, plan.UserID); err == nil && info != nil {
		profile = profileFromInfo(info)
	}
	severity := treatment.Severity(plan.OverallSeverity)
	system := treatment.SystemPrompt(severity)
	user := treatment.BuildNextDayPrompt(severity, plan.DominantArea, profile, treatment.PreviousDay{
		DayNumber: prev.DayNumber,
		Morning:   prev.Morning,
		Afternoon: prev.Afternoon,
		Evening:   prev.Evening,
	}, feedback, notes)

	g, err := s.generator.GenerateDay(ctx, system, user, reviewedDay+1)
	if err != nil {
		return nil, generationError(err)
	}
	next := dayFromGenerated(g)
	next.PlanID = plan.ID
	appended, err := s.planRepo.AppendDay(dbc, next)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "append day: %v", err)
	}
	return appended, nil
}

func dayFromGenerated(g *treatment.GeneratedDay) *types.TreatmentDay {
	return &types.TreatmentDay{
		ID:               uuid.New(),
		DayNumber:        g.Day,
		Morning:          g.Morning,
		Afternoon:        g.Afternoon,
		Evening:          g.Evening,
		Motivation:       g.Motivation,
		AdjustmentReason: g.AdjustmentReason,
	}
}

// dominantAreaOf picks the most severe analyzed area, breaking ties toward
// the earlier upload.
func dominantAreaOf(set *types.AcneLevelSet) string {
	rank := map[string]int{
		string(treatment.SeverityUnknown):   0,
		string(treatment.SeverityCleanskin): 0,
		string(treatment.SeverityMild):      1,
		string(treatment.SeverityModerate):  2,
		string(treatment.SeveritySevere):    3,
	}
	best := ""
	bestRank := -1
	for i := range set.Areas {
		if r := rank[set.Areas[i].Prediction]; r > bestRank {
			best = set.Areas[i].Area
			bestRank = r
		}
	}
	return best
}

func profileFromInfo(info *types.UserInfo) treatment.UserProfile {
	return treatment.UserProfile{
		AgeGroup:                info.AgeGroup,
		Sex:                     info.Sex,
		SkinType:                info.SkinType,
		SensitiveSkin:           info.SensitiveSkin,
		StressLevel:             info.StressLevel,
		SleepHours:              info.SleepHours,
		Allergies:               jsonStringArray(info.AllergyReactionTypes),
		UsingTreatment:          info.UsingAcneProducts == "yes",
		StoppedDueToSideEffects: info.StoppedDueToSideEffects == "yes",
	}
}

func jsonStringArray(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func generationError(err error) error {
	var gf *treatment.GenerationFailure
	if errors.As(err, &gf) {
		if gf.Transport {
			return apperr.New(apperr.KindUpstreamUnavailable, err)
		}
		return apperr.New(apperr.KindUpstreamInvalid, err)
	}
	return apperr.New(apperr.KindInternal, err)
}
