package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"

	"github.com/yungbote/dermatrack-backend/internal/data/repos"
	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/apperr"
	"github.com/yungbote/dermatrack-backend/internal/pkg/ctxutil"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/treatment"
)

// scriptedChat replays canned generation responses in order.
type scriptedChat struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedChat) Chat(ctx context.Context, system, user string) (string, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	if len(c.responses) > 0 {
		return c.responses[len(c.responses)-1], nil
	}
	return "", errors.New("no scripted response")
}

type fakePlanRepo struct {
	plans map[uuid.UUID]*types.TreatmentPlan
	days  map[uuid.UUID]map[int]*types.TreatmentDay

	// feedbackErr is returned once by SetDayFeedback, then cleared.
	feedbackErr error
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{
		plans: map[uuid.UUID]*types.TreatmentPlan{},
		days:  map[uuid.UUID]map[int]*types.TreatmentDay{},
	}
}

func (f *fakePlanRepo) CreateWithDays(dbc dbctx.Context, plan *types.TreatmentPlan, days []*types.TreatmentDay) (*types.TreatmentPlan, error) {
	for _, p := range f.plans {
		if p.UserID == plan.UserID {
			return nil, fmt.Errorf("duplicate: %w", repos.ErrPlanExists)
		}
	}
	f.plans[plan.ID] = plan
	f.days[plan.ID] = map[int]*types.TreatmentDay{}
	for _, d := range days {
		d.PlanID = plan.ID
		f.days[plan.ID][d.DayNumber] = d
	}
	return plan, nil
}

func (f *fakePlanRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.TreatmentPlan, error) {
	for _, p := range f.plans {
		if p.UserID == userID {
			cp := *p
			cp.Days = nil
			for i := 1; i <= len(f.days[p.ID]); i++ {
				if d, ok := f.days[p.ID][i]; ok {
					cp.Days = append(cp.Days, *d)
				}
			}
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePlanRepo) GetDay(dbc dbctx.Context, planID uuid.UUID, dayNumber int) (*types.TreatmentDay, error) {
	if d, ok := f.days[planID][dayNumber]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePlanRepo) SetDayFeedback(dbc dbctx.Context, planID uuid.UUID, dayNumber int, feedback string, notes *string, review string) (bool, error) {
	if f.feedbackErr != nil {
		err := f.feedbackErr
		f.feedbackErr = nil
		return false, err
	}
	d, ok := f.days[planID][dayNumber]
	if !ok || d.Feedback != nil {
		return false, nil
	}
	fb := feedback
	d.Feedback = &fb
	d.Notes = notes
	if review != "" {
		r := review
		d.Review = &r
	}
	return true, nil
}

func (f *fakePlanRepo) AdvanceCursor(dbc dbctx.Context, planID uuid.UUID, fromDay int) (bool, error) {
	p, ok := f.plans[planID]
	if !ok || p.CurrentDay != fromDay {
		return false, nil
	}
	p.CurrentDay = fromDay + 1
	return true, nil
}

func (f *fakePlanRepo) AppendDay(dbc dbctx.Context, day *types.TreatmentDay) (*types.TreatmentDay, error) {
	if existing, ok := f.days[day.PlanID][day.DayNumber]; ok {
		cp := *existing
		return &cp, nil
	}
	f.days[day.PlanID][day.DayNumber] = day
	return day, nil
}

func (f *fakePlanRepo) MaxDayNumber(dbc dbctx.Context, planID uuid.UUID) (int, error) {
	maxDay := 0
	for n := range f.days[planID] {
		if n > maxDay {
			maxDay = n
		}
	}
	return maxDay, nil
}

type fakeLevelSetRepo struct {
	sets map[uuid.UUID]*types.AcneLevelSet
}

func (f *fakeLevelSetRepo) CreateWithAreas(dbc dbctx.Context, set *types.AcneLevelSet, areas []*types.AreaPrediction) (*types.AcneLevelSet, error) {
	f.sets[set.UserID] = set
	return set, nil
}

func (f *fakeLevelSetRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.AcneLevelSet, error) {
	return f.sets[userID], nil
}

func (f *fakeLevelSetRepo) ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	_, ok := f.sets[userID]
	return ok, nil
}

type fakeUserInfoRepo struct {
	infos map[uuid.UUID]*types.UserInfo
}

func (f *fakeUserInfoRepo) Upsert(dbc dbctx.Context, info *types.UserInfo) (*types.UserInfo, error) {
	f.infos[info.UserID] = info
	return info, nil
}

func (f *fakeUserInfoRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserInfo, error) {
	return f.infos[userID], nil
}

func (f *fakeUserInfoRepo) ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	_, ok := f.infos[userID]
	return ok, nil
}

func dayJSON(day int) string {
	return fmt.Sprintf(`{
  "day": %d,
  "morning": "Gentle cleanser, light moisturizer, SPF 50.",
  "afternoon": "Blot excess oil, reapply SPF.",
  "evening": "Cleanser followed by adapalene 0.1%%.",
  "motivation": "Small steps compound.",
  "adjustment_reason": "Baseline routine for day %d."
}`, day, day)
}

func batchJSON(days int) string {
	out := `{"days": [`
	for i := 1; i <= days; i++ {
		if i > 1 {
			out += ","
		}
		out += dayJSON(i)
	}
	return out + `]}`
}

func authedCtx(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID})
}

type planFixture struct {
	svc      PlanService
	planRepo *fakePlanRepo
	info     *fakeUserInfoRepo
	levels   *fakeLevelSetRepo
	chat     *scriptedChat
	userID   uuid.UUID
}

func newPlanFixture(t *testing.T, cfg treatment.Config, chat *scriptedChat, seedPrereqs bool) *planFixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	userID := uuid.New()
	planRepo := newFakePlanRepo()
	info := &fakeUserInfoRepo{infos: map[uuid.UUID]*types.UserInfo{}}
	levels := &fakeLevelSetRepo{sets: map[uuid.UUID]*types.AcneLevelSet{}}
	if seedPrereqs {
		info.infos[userID] = &types.UserInfo{
			ID:                   uuid.New(),
			UserID:               userID,
			AgeGroup:             "18-24",
			Sex:                  "female",
			SkinType:             "Oily",
			AcneDuration:         ">3yrs",
			StressLevel:          "High",
			SleepHours:           "<5",
			AllergyReactionTypes: datatypes.JSON([]byte(`["benzoyl peroxide"]`)),
			UsingAcneProducts:    "yes",
		}
		levels.sets[userID] = &types.AcneLevelSet{
			ID:              uuid.New(),
			UserID:          userID,
			OverallSeverity: string(treatment.SeverityModerate),
			Areas: []types.AreaPrediction{
				{Area: types.AreaForehead, Prediction: string(treatment.SeverityMild)},
				{Area: types.AreaChin, Prediction: string(treatment.SeverityModerate)},
			},
		}
	}
	gen := treatment.NewGenerator(chat, log)
	svc := NewPlanService(nil, log, cfg, gen, planRepo, levels, info)
	return &planFixture{svc: svc, planRepo: planRepo, info: info, levels: levels, chat: chat, userID: userID}
}

func TestPlanStartIncremental(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)

	plan, err := fx.svc.Start(authedCtx(fx.userID))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if plan.CurrentDay != 1 {
		t.Fatalf("Start: cursor = %d, want 1", plan.CurrentDay)
	}
	if plan.GenerationMode != string(treatment.ModeIncremental) {
		t.Fatalf("Start: mode = %q", plan.GenerationMode)
	}
	if plan.DominantArea != types.AreaChin {
		t.Fatalf("Start: dominant area = %q, want chin", plan.DominantArea)
	}
	if n, _ := fx.planRepo.MaxDayNumber(dbctx.Context{}, plan.ID); n != 1 {
		t.Fatalf("Start: expected exactly day 1, got max day %d", n)
	}
}

func TestPlanStartBatch(t *testing.T) {
	chat := &scriptedChat{responses: []string{batchJSON(15)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeBatch, 0), chat, true)

	plan, err := fx.svc.Start(authedCtx(fx.userID))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if plan.CurrentDay != 1 {
		t.Fatalf("Start: cursor = %d, want 1", plan.CurrentDay)
	}
	if n, _ := fx.planRepo.MaxDayNumber(dbctx.Context{}, plan.ID); n != 15 {
		t.Fatalf("Start: expected 15 days, got max day %d", n)
	}
}

func TestPlanStartPrerequisites(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, false)

	_, err := fx.svc.Start(authedCtx(fx.userID))
	if !apperr.IsKind(err, apperr.KindPrerequisiteMissing) {
		t.Fatalf("Start without questionnaire: kind = %v, want prerequisite_missing", apperr.KindOf(err))
	}

	// Questionnaire alone is still not enough.
	fx.info.infos[fx.userID] = &types.UserInfo{ID: uuid.New(), UserID: fx.userID}
	_, err = fx.svc.Start(authedCtx(fx.userID))
	if !apperr.IsKind(err, apperr.KindPrerequisiteMissing) {
		t.Fatalf("Start without analysis: kind = %v, want prerequisite_missing", apperr.KindOf(err))
	}
}

func TestPlanStartAlreadyStarted(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1), dayJSON(1)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)

	if _, err := fx.svc.Start(authedCtx(fx.userID)); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err := fx.svc.Start(authedCtx(fx.userID))
	if !apperr.IsKind(err, apperr.KindAlreadyStarted) {
		t.Fatalf("second Start: kind = %v, want already_started", apperr.KindOf(err))
	}
}

func TestPlanStartGenerationFailures(t *testing.T) {
	transport := &scriptedChat{errs: []error{errors.New("dial tcp: refused"), errors.New("dial tcp: refused")}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), transport, true)
	_, err := fx.svc.Start(authedCtx(fx.userID))
	if !apperr.IsKind(err, apperr.KindUpstreamUnavailable) {
		t.Fatalf("transport failure: kind = %v, want upstream_unavailable", apperr.KindOf(err))
	}

	invalid := &scriptedChat{responses: []string{"not json", "still not json"}}
	fx = newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), invalid, true)
	_, err = fx.svc.Start(authedCtx(fx.userID))
	if !apperr.IsKind(err, apperr.KindUpstreamInvalid) {
		t.Fatalf("invalid output: kind = %v, want upstream_invalid", apperr.KindOf(err))
	}
	if invalid.calls != 2 {
		t.Fatalf("invalid output: %d attempts, want 2", invalid.calls)
	}
}

func TestPlanReviewIncrementalAppendsNextDay(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1), dayJSON(2)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)
	ctx := authedCtx(fx.userID)

	plan, err := fx.svc.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	reviewed, err := fx.svc.Review(ctx, 1, types.FeedbackNegative, "stung a bit")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Feedback == nil || *reviewed.Feedback != types.FeedbackNegative {
		t.Fatalf("Review: feedback not recorded: %+v", reviewed)
	}
	if reviewed.Notes == nil || *reviewed.Notes != "stung a bit" {
		t.Fatalf("Review: notes not recorded: %+v", reviewed)
	}
	if reviewed.Review == nil || *reviewed.Review == "" {
		t.Fatalf("Review: summary not recorded: %+v", reviewed)
	}

	got, _ := fx.planRepo.GetByUserID(dbctx.Context{}, fx.userID)
	if got.CurrentDay != 2 {
		t.Fatalf("Review: cursor = %d, want 2", got.CurrentDay)
	}
	day2, _ := fx.planRepo.GetDay(dbctx.Context{}, plan.ID, 2)
	if day2 == nil {
		t.Fatalf("Review: day 2 not appended")
	}
}

func TestPlanReviewBatchOnlyRecords(t *testing.T) {
	chat := &scriptedChat{responses: []string{batchJSON(15)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeBatch, 0), chat, true)
	ctx := authedCtx(fx.userID)

	if _, err := fx.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	callsAfterStart := chat.calls

	if _, err := fx.svc.Review(ctx, 1, types.FeedbackPositive, ""); err != nil {
		t.Fatalf("Review: %v", err)
	}
	if chat.calls != callsAfterStart {
		t.Fatalf("Review in batch mode must not call the generator (calls %d -> %d)", callsAfterStart, chat.calls)
	}
	got, _ := fx.planRepo.GetByUserID(dbctx.Context{}, fx.userID)
	if got.CurrentDay != 2 {
		t.Fatalf("Review: cursor = %d, want 2", got.CurrentDay)
	}
}

func TestPlanReviewRejections(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1), dayJSON(2), dayJSON(3)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)
	ctx := authedCtx(fx.userID)

	if _, err := fx.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := fx.svc.Review(ctx, 1, "meh", "")
	if !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("bad feedback: kind = %v, want invalid_argument", apperr.KindOf(err))
	}

	_, err = fx.svc.Review(ctx, 3, types.FeedbackPositive, "")
	if !apperr.IsKind(err, apperr.KindDayMismatch) {
		t.Fatalf("wrong day: kind = %v, want day_mismatch", apperr.KindOf(err))
	}

	if _, err := fx.svc.Review(ctx, 1, types.FeedbackPositive, ""); err != nil {
		t.Fatalf("Review day 1: %v", err)
	}
	_, err = fx.svc.Review(ctx, 1, types.FeedbackPositive, "")
	if !apperr.IsKind(err, apperr.KindDayMismatch) {
		t.Fatalf("repeat day: kind = %v, want day_mismatch", apperr.KindOf(err))
	}
}

func TestPlanReviewAlreadyReviewed(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)
	ctx := authedCtx(fx.userID)

	plan, err := fx.svc.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Feedback stored but the cursor never moved, as if a crash split the two
	// writes. The retry must refuse to double-write the feedback.
	fb := types.FeedbackPositive
	fx.planRepo.days[plan.ID][1].Feedback = &fb

	_, err = fx.svc.Review(ctx, 1, types.FeedbackNegative, "")
	if !apperr.IsKind(err, apperr.KindAlreadyReviewed) {
		t.Fatalf("re-review: kind = %v, want already_reviewed", apperr.KindOf(err))
	}
	if got := fx.planRepo.days[plan.ID][1].Feedback; got == nil || *got != types.FeedbackPositive {
		t.Fatalf("re-review: feedback overwritten to %v", got)
	}
}

func TestPlanReviewCapReached(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1), dayJSON(2)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 2), chat, true)
	ctx := authedCtx(fx.userID)

	if _, err := fx.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.Review(ctx, 1, types.FeedbackPositive, ""); err != nil {
		t.Fatalf("Review day 1: %v", err)
	}
	// Day 2 is the cap: reviewing it must not append day 3.
	callsBefore := chat.calls
	if _, err := fx.svc.Review(ctx, 2, types.FeedbackPositive, ""); err != nil {
		t.Fatalf("Review day 2: %v", err)
	}
	if chat.calls != callsBefore {
		t.Fatalf("review at cap must not generate day 3")
	}

	_, err := fx.svc.Review(ctx, 3, types.FeedbackPositive, "")
	if !apperr.IsKind(err, apperr.KindCapReached) {
		t.Fatalf("past cap: kind = %v, want cap_reached", apperr.KindOf(err))
	}

	status, err := fx.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Completed || status.ReviewedDays != 2 {
		t.Fatalf("Status: completed=%v reviewed=%d", status.Completed, status.ReviewedDays)
	}
	if status.TotalDays != 2 || status.GeneratedDays != 2 {
		t.Fatalf("Status: total=%d generated=%d, want 2/2", status.TotalDays, status.GeneratedDays)
	}
}

func TestPlanReviewRetriesTransientWrite(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1), dayJSON(2)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)
	ctx := authedCtx(fx.userID)

	if _, err := fx.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// First feedback write hits a serialization failure; the service retries.
	fx.planRepo.feedbackErr = &pgconn.PgError{Code: "40001"}
	reviewed, err := fx.svc.Review(ctx, 1, types.FeedbackPositive, "")
	if err != nil {
		t.Fatalf("Review after transient failure: %v", err)
	}
	if reviewed == nil || !reviewed.Reviewed() {
		t.Fatalf("Review: feedback not recorded after retry: %+v", reviewed)
	}

	got, _ := fx.planRepo.GetByUserID(dbctx.Context{}, fx.userID)
	if got.CurrentDay != 2 {
		t.Fatalf("Review: cursor = %d, want 2", got.CurrentDay)
	}
}

func TestPlanCapPersistedAcrossConfigChange(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1), dayJSON(2)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 2), chat, true)
	ctx := authedCtx(fx.userID)

	plan, err := fx.svc.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if plan.MaxDays != 2 {
		t.Fatalf("Start: persisted cap = %d, want 2", plan.MaxDays)
	}
	if _, err := fx.svc.Review(ctx, 1, types.FeedbackPositive, ""); err != nil {
		t.Fatalf("Review day 1: %v", err)
	}
	if _, err := fx.svc.Review(ctx, 2, types.FeedbackPositive, ""); err != nil {
		t.Fatalf("Review day 2: %v", err)
	}

	// A redeploy with a larger cap must not reopen plans started under the
	// old one.
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	gen := treatment.NewGenerator(fx.chat, log)
	redeployed := NewPlanService(nil, log, treatment.NewConfig(treatment.ModeIncremental, 99), gen, fx.planRepo, fx.levels, fx.info)

	_, err = redeployed.Review(ctx, 3, types.FeedbackPositive, "")
	if !apperr.IsKind(err, apperr.KindCapReached) {
		t.Fatalf("review past persisted cap: kind = %v, want cap_reached", apperr.KindOf(err))
	}
	status, err := redeployed.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.TotalDays != 2 || !status.Completed {
		t.Fatalf("Status: total=%d completed=%v, want the cap the plan started under", status.TotalDays, status.Completed)
	}
}

func TestPlanReviewSelfHealsMissingDay(t *testing.T) {
	chat := &scriptedChat{responses: []string{dayJSON(1), dayJSON(2), dayJSON(2), dayJSON(3)}}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)
	ctx := authedCtx(fx.userID)

	plan, err := fx.svc.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.Review(ctx, 1, types.FeedbackPositive, ""); err != nil {
		t.Fatalf("Review day 1: %v", err)
	}

	// Simulate a crash that lost day 2 after the cursor advanced.
	delete(fx.planRepo.days[plan.ID], 2)

	reviewed, err := fx.svc.Review(ctx, 2, types.FeedbackPositive, "")
	if err != nil {
		t.Fatalf("Review day 2 after loss: %v", err)
	}
	if reviewed == nil || reviewed.DayNumber != 2 || !reviewed.Reviewed() {
		t.Fatalf("Review day 2: day not regenerated and reviewed: %+v", reviewed)
	}
	day3, _ := fx.planRepo.GetDay(dbctx.Context{}, plan.ID, 3)
	if day3 == nil {
		t.Fatalf("Review day 2: day 3 not appended after self-heal")
	}
}

func TestPlanStatusNotFound(t *testing.T) {
	chat := &scriptedChat{}
	fx := newPlanFixture(t, treatment.NewConfig(treatment.ModeIncremental, 0), chat, true)
	_, err := fx.svc.Status(authedCtx(fx.userID))
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("Status without plan: kind = %v, want not_found", apperr.KindOf(err))
	}
}
