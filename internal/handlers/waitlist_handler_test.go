package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/swcolombo/waitlist-api/internal/models"
	apperrors "github.com/swcolombo/waitlist-api/pkg/errors"
)

type MockWaitlistService struct {
	mock.Mock
}

func (m *MockWaitlistService) Submit(ctx context.Context, req *models.WaitlistRequest) *models.SubmissionResult {
	args := m.Called(ctx, req)
	return args.Get(0).(*models.SubmissionResult)
}

func (m *MockWaitlistService) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockWaitlistService) CircuitOpen() bool {
	return m.Called().Bool(0)
}

func (m *MockWaitlistService) FieldSet() models.FieldSet {
	return m.Called().Get(0).(models.FieldSet)
}

func newWaitlistRouter(service *MockWaitlistService) *gin.Engine {
	handler := NewWaitlistHandler(service)
	router := gin.New()
	router.POST("/waitlist", handler.Join)
	router.GET("/waitlist/fields", handler.Fields)
	return router
}

func TestWaitlistHandler_Join_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		result     *models.SubmissionResult
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			result:     &models.SubmissionResult{OK: true, Message: "Thanks! You're on the waitlist."},
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true,"message":"Thanks! You're on the waitlist.","deduped":false}`,
		},
		{
			name:       "deduped",
			result:     &models.SubmissionResult{OK: true, Message: "You were already on the list.", Deduped: true},
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true,"message":"You were already on the list.","deduped":true}`,
		},
		{
			name:       "validation",
			result:     &models.SubmissionResult{Message: "Enter a valid email", Cause: apperrors.ValidationError("email", "Enter a valid email")},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"ok":false,"message":"Enter a valid email","deduped":false}`,
		},
		{
			name:       "spam",
			result:     &models.SubmissionResult{Message: "Spam check failed.", Cause: apperrors.ErrSpamRejected},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"ok":false,"message":"Spam check failed.","deduped":false}`,
		},
		{
			name:       "remote",
			result:     &models.SubmissionResult{Message: "Email already used", Cause: apperrors.RemoteError("Email already used")},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"ok":false,"message":"Email already used","deduped":false}`,
		},
		{
			name:       "in flight",
			result:     &models.SubmissionResult{Message: "A submission is already in progress.", Cause: apperrors.ErrInFlight},
			wantStatus: http.StatusConflict,
			wantBody:   `{"ok":false,"message":"A submission is already in progress.","deduped":false}`,
		},
		{
			name: "transport",
			result: &models.SubmissionResult{
				Message:   "Could not reach the waitlist (HTTP 500). Please try again.",
				Retryable: true,
				Cause:     apperrors.TransportError(nil),
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"ok":false,"message":"Could not reach the waitlist (HTTP 500). Please try again.","deduped":false,"retryable":true}`,
		},
		{
			name:       "not configured",
			result:     &models.SubmissionResult{Message: "Server endpoint is not configured.", Cause: apperrors.ErrNotConfigured},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"ok":false,"message":"Server endpoint is not configured.","deduped":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockWaitlistService)
			service.On("Submit", mock.Anything, mock.Anything).Return(tt.result).Once()
			router := newWaitlistRouter(service)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/waitlist",
				strings.NewReader(`{"name":"Jane Doe","email":"jane@example.com"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			service.AssertExpectations(t)
		})
	}
}

func TestWaitlistHandler_Join_BindsJSON(t *testing.T) {
	service := new(MockWaitlistService)
	service.On("Submit", mock.Anything, &models.WaitlistRequest{
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		Designation: "Digital Nomad",
		Company:     "Acme",
		Contact:     "0771234567",
		Phone:       "bait",
	}).Return(&models.SubmissionResult{Message: "Spam check failed.", Cause: apperrors.ErrSpamRejected}).Once()
	router := newWaitlistRouter(service)

	body := `{"name":"Jane Doe","email":"jane@example.com","designation":"Digital Nomad","company":"Acme","contact":"0771234567","phone":"bait"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertExpectations(t)
}

func TestWaitlistHandler_Join_BindsForm(t *testing.T) {
	service := new(MockWaitlistService)
	service.On("Submit", mock.Anything, mock.MatchedBy(func(r *models.WaitlistRequest) bool {
		return r.Name == "Jane Doe" && r.Email == "jane@example.com" && r.Phone == ""
	})).Return(&models.SubmissionResult{OK: true, Message: "Thanks! You're on the waitlist."}).Once()
	router := newWaitlistRouter(service)

	form := url.Values{"name": {"Jane Doe"}, "email": {"jane@example.com"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestWaitlistHandler_Join_MalformedBody(t *testing.T) {
	service := new(MockWaitlistService)
	router := newWaitlistRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"message":"Invalid request"}`, w.Body.String())
	service.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestWaitlistHandler_Join_AttachesCause(t *testing.T) {
	service := new(MockWaitlistService)
	service.On("Submit", mock.Anything, mock.Anything).
		Return(&models.SubmissionResult{Message: "Spam check failed.", Cause: apperrors.ErrSpamRejected}).Once()

	var attached []error
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Next()
		for _, e := range c.Errors {
			attached = append(attached, e.Err)
		}
	})
	router.POST("/waitlist", NewWaitlistHandler(service).Join)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(`{"name":"Jane Doe","email":"jane@example.com","phone":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Len(t, attached, 1)
	assert.ErrorIs(t, attached[0], apperrors.ErrSpamRejected)
}

func TestWaitlistHandler_Fields(t *testing.T) {
	t.Run("professional", func(t *testing.T) {
		service := new(MockWaitlistService)
		service.On("FieldSet").Return(models.FieldSetProfessional)
		service.On("Configured").Return(true)

		w := httptest.NewRecorder()
		newWaitlistRouter(service).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/waitlist/fields", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"field_set": "professional",
			"fields": ["name","email","designation","company","contact"],
			"designations": ["Working Professional","Business Owner","Aspiring Entrepreneur","Mompreneur","Digital Nomad","Intrapreneur","Other"],
			"default_designation": "Working Professional",
			"configured": true
		}`, w.Body.String())
	})

	t.Run("basic", func(t *testing.T) {
		service := new(MockWaitlistService)
		service.On("FieldSet").Return(models.FieldSetBasic)
		service.On("Configured").Return(false)

		w := httptest.NewRecorder()
		newWaitlistRouter(service).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/waitlist/fields", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"field_set": "basic",
			"fields": ["name","email"],
			"designations": null,
			"default_designation": "Working Professional",
			"configured": false
		}`, w.Body.String())
	})
}

type stubEventService struct {
	countdown *models.Countdown
}

func (s stubEventService) Countdown() *models.Countdown {
	return s.countdown
}

func TestEventHandler_Countdown(t *testing.T) {
	start := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)
	handler := NewEventHandler(stubEventService{countdown: &models.Countdown{
		StartsAt: start,
		TotalMS:  90061000,
		Days:     1,
		Hours:    1,
		Minutes:  1,
		Seconds:  1,
	}})
	router := gin.New()
	router.GET("/countdown", handler.Countdown)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/countdown", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, max-age=0, must-revalidate", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{
		"starts_at": "2025-12-05T00:00:00Z",
		"total_ms": 90061000,
		"days": 1,
		"hours": 1,
		"minutes": 1,
		"seconds": 1,
		"live": false
	}`, w.Body.String())
}

func TestStatusFor_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
	assert.Equal(t, http.StatusOK, statusFor(nil))
}
