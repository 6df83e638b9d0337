package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/honmoon-go-api/internal/models"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
	"github.com/noah-isme/honmoon-go-api/pkg/ai"
	"github.com/noah-isme/honmoon-go-api/pkg/imageurl"
)

type publisherStub struct {
	mu        sync.Mutex
	published []models.UserActivity
}

func (p *publisherStub) ActivityCompleted(_ context.Context, activity models.UserActivity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, activity)
}

func (p *publisherStub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type submissionFixture struct {
	db        *gorm.DB
	svc       MissionSubmissionService
	judge     *judgeStub
	publisher *publisherStub
	place     models.MissionPlace
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MissionPlace{},
		&models.MissionDetail{},
		&models.UserActivity{},
		&models.PointHistory{},
		&models.UserSummary{},
	))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newSubmissionFixture(t *testing.T, guard SubmissionGuard) *submissionFixture {
	t.Helper()
	return newSubmissionFixtureWithWait(t, guard, 0)
}

func newSubmissionFixtureWithWait(t *testing.T, guard SubmissionGuard, wait time.Duration) *submissionFixture {
	t.Helper()
	db := openServiceTestDB(t)

	place := models.MissionPlace{Name: "Gyeongbokgung"}
	require.NoError(t, db.Create(&place).Error)

	judge := &judgeStub{}
	publisher := &publisherStub{}
	policy := NewRewardPolicy(DefaultConfidenceThreshold)
	points := repository.NewPointRepository(db)

	svc := NewMissionSubmissionService(MissionSubmissionDependencies{
		Missions:   repository.NewMissionRepository(db),
		Places:     repository.NewPlaceRepository(db),
		Activities: repository.NewActivityRepository(db),
		Points:     points,
		Transactor: repository.NewTransactor(db),
		Verifier:   NewMissionVerifier(judge, imageurl.New(), policy, zerolog.Nop()),
		Rewards:    NewRewardIssuer(points, policy, zerolog.Nop()),
		Judge:      judge,
		Guard:      guard,
		Publisher:  publisher,
		Logger:     zerolog.Nop(),

		ContentionWait: wait,
		ContentionPoll: 10 * time.Millisecond,
	})

	return &submissionFixture{db: db, svc: svc, judge: judge, publisher: publisher, place: place}
}

func (f *submissionFixture) createMission(t *testing.T, mission models.MissionDetail) models.MissionDetail {
	t.Helper()
	if mission.PlaceID == nil {
		mission.PlaceID = &f.place.ID
	}
	if mission.Title == "" {
		mission.Title = "Palace quiz"
	}
	require.NoError(t, f.db.Create(&mission).Error)
	return mission
}

func (f *submissionFixture) summary(t *testing.T, userID uuid.UUID) models.UserSummary {
	t.Helper()
	var summary models.UserSummary
	err := f.db.Where("user_id = ?", userID).Take(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserSummary{}
	}
	require.NoError(t, err)
	return summary
}

func (f *submissionFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(model).Count(&count).Error)
	return count
}

func TestSubmitRewardsCorrectAnswerOnce(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{
		MissionType: models.MissionTypeMultipleChoice,
		Answer:      strPtr("B"),
		Choices:     []string{"A", "B", "C"},
		Points:      100,
	})
	userID := uuid.New()

	first, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{SelectedChoiceIndex: intPtr(1)})
	require.NoError(t, err)
	require.False(t, first.AlreadyExists)
	require.True(t, *first.IsCorrect)
	require.True(t, first.IsCompleted)
	require.Equal(t, 100, first.PointsEarned)
	require.Equal(t, f.place.ID, first.PlaceID)

	second, err := f.svc.Submit(context.Background(), userID, f.place.ID, mission.ID, SubmissionPayload{SelectedChoiceIndex: intPtr(0)})
	require.NoError(t, err)
	require.True(t, second.AlreadyExists)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.PointsEarned, second.PointsEarned)
	require.True(t, *second.IsCorrect)

	summary := f.summary(t, userID)
	require.Equal(t, 100, summary.TotalPoints)
	require.Equal(t, 1, summary.TotalActivities)
	require.Equal(t, int64(1), f.count(t, &models.PointHistory{}))
	require.Equal(t, int64(1), f.count(t, &models.UserActivity{}))
	require.Equal(t, 1, f.publisher.count())
}

func TestSubmitRecordsWrongAnswerWithoutReward(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{
		MissionType: models.MissionTypeTextInput,
		Answer:      strPtr("Seoul"),
		Points:      50,
	})
	userID := uuid.New()

	activity, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{TextAnswer: strPtr("<b>Busan</b>")})
	require.NoError(t, err)
	require.False(t, *activity.IsCorrect)
	require.Zero(t, activity.PointsEarned)
	require.Equal(t, "Busan", *activity.TextAnswer)
	require.Equal(t, defaultIncorrectHint, activity.Verification["hint"])

	summary := f.summary(t, userID)
	require.Zero(t, summary.TotalPoints)
	require.Equal(t, 1, summary.TotalActivities)
	require.Zero(t, f.count(t, &models.PointHistory{}))
}

func TestSubmitImageMissionBelowConfidenceEarnsNothing(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	f.judge.analysis = ai.ImageAnalysis{ExtractedText: "경복궁"}
	f.judge.check = ai.AnswerCheck{IsCorrect: true, Confidence: 0.3, Reasoning: "blurry", Provider: ai.ProviderGemini}
	mission := f.createMission(t, models.MissionDetail{
		MissionType: models.MissionTypeImageUpload,
		Answer:      strPtr("Gyeongbokgung"),
		Points:      200,
	})
	userID := uuid.New()

	activity, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{UploadedImageURL: strPtr("https://cdn.example.com/a.jpg")})
	require.NoError(t, err)
	require.False(t, *activity.IsCorrect)
	require.Zero(t, activity.PointsEarned)
	require.Equal(t, "경복궁", activity.Verification["extracted_text"])
	require.Equal(t, ai.ProviderGemini, activity.Verification["provider"])
	require.Zero(t, f.summary(t, userID).TotalPoints)
}

func TestSubmitJudgeFailureWritesNothing(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	f.judge.analyzeErr = &ai.FallbackError{Operation: "analyze_image", Primary: errors.New("openai down"), Secondary: errors.New("gemini down")}
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypeImageUpload, Answer: strPtr("x"), Points: 10})
	userID := uuid.New()

	_, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{UploadedImageURL: strPtr("https://cdn.example.com/a.png")})
	var aiErr *AIServiceError
	require.ErrorAs(t, err, &aiErr)
	require.Zero(t, f.count(t, &models.UserActivity{}))
	require.Zero(t, f.count(t, &models.PointHistory{}))
	require.Zero(t, f.publisher.count())

	f.judge.analyzeErr = nil
	f.judge.analysis = ai.ImageAnalysis{ExtractedText: "x"}
	f.judge.check = ai.AnswerCheck{IsCorrect: true, Confidence: 0.9}
	activity, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{UploadedImageURL: strPtr("https://cdn.example.com/a.png")})
	require.NoError(t, err)
	require.Equal(t, 10, activity.PointsEarned)
}

func TestSubmitValidationHappensBeforeJudging(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypeMultipleChoice, Answer: strPtr("A"), Choices: []string{"A", "B"}})

	_, err := f.svc.Submit(context.Background(), uuid.New(), 0, mission.ID, SubmissionPayload{})
	requireValidationKind(t, err, ValidationRequiredFieldMissing)
	require.Zero(t, f.judge.calls())
	require.Zero(t, f.count(t, &models.UserActivity{}))
}

func TestSubmitNotFound(t *testing.T) {
	f := newSubmissionFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), uuid.New(), 0, 999, SubmissionPayload{})
	require.ErrorIs(t, err, ErrMissionNotFound)

	orphan := models.MissionDetail{Title: "orphan", MissionType: models.MissionTypePlaceVisit}
	require.NoError(t, f.db.Create(&orphan).Error)
	_, err = f.svc.Submit(context.Background(), uuid.New(), 0, orphan.ID, SubmissionPayload{})
	require.ErrorIs(t, err, ErrPlaceNotFound)

	missingPlace := uint(4242)
	ghost := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypePlaceVisit, PlaceID: &missingPlace})
	_, err = f.svc.Submit(context.Background(), uuid.New(), 0, ghost.ID, SubmissionPayload{})
	require.ErrorIs(t, err, ErrPlaceNotFound)

	visit := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypePlaceVisit})
	_, err = f.svc.Submit(context.Background(), uuid.New(), f.place.ID+1, visit.ID, SubmissionPayload{})
	require.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestSubmitConcurrentDuplicatesRewardOnce(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypePlaceVisit, Points: 30})
	userID := uuid.New()

	const workers = 8
	var wg sync.WaitGroup
	ids := make(chan uint, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			activity, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{})
			if err != nil {
				errs <- err
				return
			}
			ids <- activity.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[uint]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	require.Len(t, seen, 1)

	require.Equal(t, int64(1), f.count(t, &models.UserActivity{}))
	require.Equal(t, int64(1), f.count(t, &models.PointHistory{}))
	require.Equal(t, 30, f.summary(t, userID).TotalPoints)
	require.Equal(t, 1, f.publisher.count())
}

func TestSubmitGuardHeldByAnotherRequest(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	f := newSubmissionFixtureWithWait(t, NewSubmissionGuard(client, "honmoon", time.Minute, zerolog.Nop()), 5*time.Second)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypeSurvey, Points: 5})
	userID := uuid.New()

	key := fmt.Sprintf("honmoon:submission:%s:%d", userID, f.place.ID)
	require.NoError(t, server.Set(key, "other-request"))

	// The request holding the guard records its activity and lets go.
	var first models.UserActivity
	done := make(chan error, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		first = models.UserActivity{UserID: userID, PlaceID: f.place.ID, MissionID: &mission.ID, Description: mission.Title, IsCompleted: true, PointsEarned: 5}
		err := f.db.Create(&first).Error
		server.Del(key)
		done <- err
	}()

	activity, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{TextAnswer: strPtr("great")})
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.True(t, activity.AlreadyExists)
	require.Equal(t, first.ID, activity.ID)
	require.Equal(t, int64(1), f.count(t, &models.UserActivity{}))
	require.Zero(t, f.count(t, &models.PointHistory{}))
	require.Zero(t, f.publisher.count())
}

func TestSubmitTakesOverReleasedGuard(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	f := newSubmissionFixtureWithWait(t, NewSubmissionGuard(client, "honmoon", time.Minute, zerolog.Nop()), 5*time.Second)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypeSurvey, Points: 5})
	userID := uuid.New()

	key := fmt.Sprintf("honmoon:submission:%s:%d", userID, f.place.ID)
	require.NoError(t, server.Set(key, "failed-request"))
	go func() {
		time.Sleep(100 * time.Millisecond)
		server.Del(key)
	}()

	activity, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{TextAnswer: strPtr("great")})
	require.NoError(t, err)
	require.False(t, activity.AlreadyExists)
	require.Equal(t, 5, activity.PointsEarned)
	require.False(t, server.Exists(key), "guard should be released after the submission")
}

func TestSubmitProceedsWhenGuardNeverReleases(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	f := newSubmissionFixtureWithWait(t, NewSubmissionGuard(client, "honmoon", time.Minute, zerolog.Nop()), 50*time.Millisecond)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypeSurvey, Points: 5})
	userID := uuid.New()

	key := fmt.Sprintf("honmoon:submission:%s:%d", userID, f.place.ID)
	require.NoError(t, server.Set(key, "stuck-request"))

	activity, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{TextAnswer: strPtr("great")})
	require.NoError(t, err)
	require.False(t, activity.AlreadyExists)
	require.Equal(t, 5, f.summary(t, userID).TotalPoints)

	again, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{TextAnswer: strPtr("great")})
	require.NoError(t, err)
	require.True(t, again.AlreadyExists)
	require.Equal(t, activity.ID, again.ID)
	require.Equal(t, 5, f.summary(t, userID).TotalPoints)
}

func TestSubmitRetryForRemovedMissionReturnsRecordedActivity(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypePlaceVisit, Points: 10})
	userID := uuid.New()

	first, err := f.svc.Submit(context.Background(), userID, f.place.ID, mission.ID, SubmissionPayload{})
	require.NoError(t, err)
	require.False(t, first.AlreadyExists)

	require.NoError(t, f.db.Delete(&models.MissionDetail{}, mission.ID).Error)

	retry, err := f.svc.Submit(context.Background(), userID, f.place.ID, mission.ID, SubmissionPayload{})
	require.NoError(t, err)
	require.True(t, retry.AlreadyExists)
	require.Equal(t, first.ID, retry.ID)

	_, err = f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{})
	require.ErrorIs(t, err, ErrMissionNotFound)
}

func TestSubmitStoresAnswerTextWithoutMarkup(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypeSurvey, Points: 5})
	userID := uuid.New()

	_, err := f.svc.Submit(context.Background(), userID, 0, mission.ID, SubmissionPayload{TextAnswer: strPtr("  Tom & Jerry <3 <b>bold</b><script>alert(1)</script> ")})
	require.NoError(t, err)

	var stored models.UserActivity
	require.NoError(t, f.db.Where("user_id = ?", userID).Take(&stored).Error)
	require.NotNil(t, stored.TextAnswer)
	require.Equal(t, "Tom & Jerry <3 bold", *stored.TextAnswer)
}

func TestCheckAnswerPreviewsWithoutRecording(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{
		MissionType:       models.MissionTypeTextInput,
		Question:          "Capital of Korea?",
		Answer:            strPtr("Seoul"),
		AnswerExplanation: strPtr("Seoul has been the capital since 1394."),
		Points:            40,
	})

	correct, err := f.svc.CheckAnswer(context.Background(), mission.ID, SubmissionPayload{TextAnswer: strPtr("seoul")})
	require.NoError(t, err)
	require.True(t, correct.IsCorrect)
	require.Equal(t, "Seoul has been the capital since 1394.", correct.Explanation)
	require.Nil(t, correct.Hint)
	require.Equal(t, 40, correct.PointsOnOffer)
	require.Zero(t, f.judge.textCalls)

	f.judge.textCheck = ai.AnswerCheck{IsCorrect: false, Confidence: 0.9, Reasoning: "Busan is a port city", Hint: "수도예요"}
	wrong, err := f.svc.CheckAnswer(context.Background(), mission.ID, SubmissionPayload{TextAnswer: strPtr("Busan")})
	require.NoError(t, err)
	require.False(t, wrong.IsCorrect)
	require.Equal(t, "수도예요", *wrong.Hint)
	require.Equal(t, "Busan is a port city", wrong.Explanation)
	require.Zero(t, wrong.PointsOnOffer)
	require.Equal(t, 1, f.judge.textCalls)

	f.judge.textErr = errors.New("both judges down")
	fallback, err := f.svc.CheckAnswer(context.Background(), mission.ID, SubmissionPayload{TextAnswer: strPtr("Busan")})
	require.NoError(t, err)
	require.Equal(t, defaultIncorrectHint, *fallback.Hint)

	require.Zero(t, f.count(t, &models.UserActivity{}))
}

func TestCheckAnswerImageExplanationIncludesExtractedText(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	f.judge.analysis = ai.ImageAnalysis{ExtractedText: "Namsan"}
	f.judge.check = ai.AnswerCheck{IsCorrect: false, Confidence: 0.8, Reasoning: "different landmark"}
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypeImageUpload, Answer: strPtr("Gyeongbokgung"), Points: 10})

	resp, err := f.svc.CheckAnswer(context.Background(), mission.ID, SubmissionPayload{UploadedImageURL: strPtr("https://cdn.example.com/a.png")})
	require.NoError(t, err)
	require.False(t, resp.IsCorrect)
	require.Equal(t, "Extracted text: 'Namsan' - different landmark", resp.Explanation)
	require.Equal(t, "Namsan", *resp.ExtractedText)
}

func TestActivityQueriesAreScopedToUser(t *testing.T) {
	f := newSubmissionFixture(t, nil)
	mission := f.createMission(t, models.MissionDetail{MissionType: models.MissionTypePlaceVisit, Points: 1})
	owner := uuid.New()

	activity, err := f.svc.Submit(context.Background(), owner, 0, mission.ID, SubmissionPayload{})
	require.NoError(t, err)

	list, err := f.svc.ListUserActivities(context.Background(), owner, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)
	require.Len(t, list.Items, 1)

	fetched, err := f.svc.GetActivity(context.Background(), owner, activity.ID)
	require.NoError(t, err)
	require.Equal(t, activity.ID, fetched.ID)

	_, err = f.svc.GetActivity(context.Background(), uuid.New(), activity.ID)
	require.ErrorIs(t, err, ErrActivityNotFound)

	_, err = f.svc.GetActivity(context.Background(), owner, activity.ID+100)
	require.ErrorIs(t, err, ErrActivityNotFound)
}
