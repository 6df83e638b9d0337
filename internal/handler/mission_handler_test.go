package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/honmoon-go-api/internal/dto"
	"github.com/noah-isme/honmoon-go-api/internal/handler"
	"github.com/noah-isme/honmoon-go-api/internal/models"
	"github.com/noah-isme/honmoon-go-api/internal/service"
)

type submitCall struct {
	userID    uuid.UUID
	placeID   uint
	missionID uint
	payload   service.SubmissionPayload
}

type mockSubmissionService struct {
	submitCalls []submitCall
	submitResp  dto.ActivityResponse
	checkResp   dto.AnswerCheckResponse
	listResp    dto.ActivityListResponse
	getResp     dto.ActivityResponse
	err         error
}

func (m *mockSubmissionService) Submit(_ context.Context, userID uuid.UUID, placeID, missionID uint, payload service.SubmissionPayload) (dto.ActivityResponse, error) {
	m.submitCalls = append(m.submitCalls, submitCall{userID: userID, placeID: placeID, missionID: missionID, payload: payload})
	return m.submitResp, m.err
}

func (m *mockSubmissionService) Verify(context.Context, models.MissionDetail, service.SubmissionPayload) (service.VerificationResult, error) {
	return service.VerificationResult{}, m.err
}

func (m *mockSubmissionService) CheckAnswer(_ context.Context, missionID uint, _ service.SubmissionPayload) (dto.AnswerCheckResponse, error) {
	resp := m.checkResp
	resp.MissionID = missionID
	return resp, m.err
}

func (m *mockSubmissionService) ListUserActivities(context.Context, uuid.UUID, int, int) (dto.ActivityListResponse, error) {
	return m.listResp, m.err
}

func (m *mockSubmissionService) GetActivity(context.Context, uuid.UUID, uint) (dto.ActivityResponse, error) {
	return m.getResp, m.err
}

func newMissionApp(svc service.MissionSubmissionService, userID uuid.UUID) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/missions", authAs(userID))
	handler.NewMissionHandler(svc, validator.New(validator.WithRequiredStructEnabled()), nil, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestMissionHandler_SubmitPassesPayload(t *testing.T) {
	userID := uuid.New()
	svc := &mockSubmissionService{submitResp: dto.ActivityResponse{ID: 7, PlaceID: 3, PointsEarned: 10, IsCompleted: true}}
	app := newMissionApp(svc, userID)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/missions/12/submissions", map[string]interface{}{
		"selected_choice_index": 2,
		"place_id":              3,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "mission submitted", body.Message)

	require.Len(t, svc.submitCalls, 1)
	call := svc.submitCalls[0]
	require.Equal(t, userID, call.userID)
	require.Equal(t, uint(3), call.placeID)
	require.Equal(t, uint(12), call.missionID)
	require.NotNil(t, call.payload.SelectedChoiceIndex)
	require.Equal(t, 2, *call.payload.SelectedChoiceIndex)
	require.Nil(t, call.payload.TextAnswer)

	var activity dto.ActivityResponse
	require.NoError(t, json.Unmarshal(body.Data, &activity))
	require.Equal(t, uint(7), activity.ID)
	require.Equal(t, 10, activity.PointsEarned)
}

func TestMissionHandler_SubmitDuplicateIsSuccess(t *testing.T) {
	svc := &mockSubmissionService{submitResp: dto.ActivityResponse{ID: 7, AlreadyExists: true}}
	app := newMissionApp(svc, uuid.New())

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/missions/12/submissions", map[string]interface{}{"text_answer": "seoul"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "mission already submitted", body.Message)
}

func TestMissionHandler_SubmitRejectsBadMissionID(t *testing.T) {
	svc := &mockSubmissionService{}
	app := newMissionApp(svc, uuid.New())

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/missions/abc/submissions", map[string]interface{}{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, handler.CodeIllegalRequest, body.Code)
	require.Empty(t, svc.submitCalls)
}

func TestMissionHandler_SubmitRejectsOversizedAnswer(t *testing.T) {
	svc := &mockSubmissionService{}
	app := newMissionApp(svc, uuid.New())

	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/missions/1/submissions", map[string]interface{}{"text_answer": string(long)})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, handler.CodeIllegalRequest, body.Code)
	require.Contains(t, string(body.Details), "TextAnswer")
	require.Empty(t, svc.submitCalls)
}

func TestMissionHandler_SubmitRequiresUser(t *testing.T) {
	svc := &mockSubmissionService{}
	app := newMissionApp(svc, uuid.Nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/missions/1/submissions", map[string]interface{}{})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, handler.CodeUnauthorized, body.Code)
	require.Empty(t, svc.submitCalls)
}

func TestMissionHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"mission not found", service.ErrMissionNotFound, fiber.StatusNotFound, handler.CodeMissionNotFound},
		{"place not found", service.ErrPlaceNotFound, fiber.StatusNotFound, handler.CodePlaceNotFound},
		{"missing field", &service.ValidationError{Kind: service.ValidationRequiredFieldMissing, Field: "selected_choice_index"}, fiber.StatusBadRequest, "REQUIRED_FIELD_MISSING"},
		{"bad choice", &service.ValidationError{Kind: service.ValidationInvalidChoiceIndex, Field: "selected_choice_index"}, fiber.StatusBadRequest, "INVALID_CHOICE_INDEX"},
		{"empty text", &service.ValidationError{Kind: service.ValidationTextAnswerEmpty, Field: "text_answer"}, fiber.StatusBadRequest, "TEXT_ANSWER_EMPTY"},
		{"unsafe url", &service.ValidationError{Kind: service.ValidationUnsafeImageURL, Field: "uploaded_image_url", Err: errors.New("bad host")}, fiber.StatusBadRequest, "UNSAFE_IMAGE_URL"},
		{"ai down", &service.AIServiceError{Err: errors.New("both failed")}, fiber.StatusBadGateway, handler.CodeAIUnavailable},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError, handler.CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newMissionApp(&mockSubmissionService{err: tc.err}, uuid.New())

			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/missions/1/submissions", map[string]interface{}{})
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, body.Success)
			require.Equal(t, tc.code, body.Code)
		})
	}
}

func TestMissionHandler_CheckAnswer(t *testing.T) {
	hint := "다시 생각해보세요"
	svc := &mockSubmissionService{checkResp: dto.AnswerCheckResponse{IsCorrect: false, Confidence: 0.9, Hint: &hint, PointsOnOffer: 10, Provider: "openai"}}
	app := newMissionApp(svc, uuid.New())

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/missions/5/check", map[string]interface{}{"text_answer": "busan"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result dto.AnswerCheckResponse
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Equal(t, uint(5), result.MissionID)
	require.False(t, result.IsCorrect)
	require.NotNil(t, result.Hint)
	require.Equal(t, hint, *result.Hint)
	require.Empty(t, svc.submitCalls)
}
