package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
)

func TestErrorHandlerRendersAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/forbidden", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrForbidden)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/forbidden", nil)
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusForbidden, recorder.Code)

	var body apperrors.APIError
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, http.StatusForbidden, body.Code)
	require.Equal(t, apperrors.ErrForbidden.Error(), body.Message)
}
