package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bindRating(t *testing.T, body string) (RatingUpdateRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPut, "/drivers/1/rating", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req RatingUpdateRequest
	err := c.ShouldBindJSON(&req)
	return req, err
}

func TestRatingUpdateBindingAcceptsZero(t *testing.T) {
	req, err := bindRating(t, `{"rating": 0}`)
	if err != nil {
		t.Fatalf("binding rejected rating 0: %v", err)
	}
	if req.Rating == nil || *req.Rating != 0 {
		t.Fatalf("rating = %v, want 0", req.Rating)
	}
}

func TestRatingUpdateBindingRequiresField(t *testing.T) {
	if _, err := bindRating(t, `{}`); err == nil {
		t.Fatal("binding accepted a payload without rating")
	}
}
