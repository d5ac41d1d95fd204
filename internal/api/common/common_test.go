package common

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDataResponse(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteDataResponse(rr, map[string]string{"message": "ok"}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"message":"ok"}}`, rr.Body.String())
}

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteErrorResponse(rr, "Flight AA123 not found in tracking list", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "Flight AA123 not found in tracking list", resp.Error)
}

func TestWriteDataResponse_EmptySlice(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteDataResponse(rr, []string{}, http.StatusOK)

	assert.JSONEq(t, `{"success":true,"data":[]}`, rr.Body.String())
}

func TestGetFlightNumberParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		value      string
		want       string
		wantErrMsg string
	}{
		{name: "plain", value: "AA123", want: "AA123"},
		{name: "lowercase kept as is", value: "aa123", want: "aa123"},
		{name: "encoded surrounding space is trimmed", value: "%20AA123%20", want: "AA123"},
		{name: "empty", value: "", wantErrMsg: "flightNumber cannot be empty"},
		{name: "only whitespace", value: "%20%20", wantErrMsg: "flightNumber cannot be empty"},
		{name: "inner whitespace", value: "AA%20123", wantErrMsg: "flightNumber cannot contain whitespace"},
		{name: "bad encoding", value: "AA%zz", wantErrMsg: "invalid URL encoding in flightNumber"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("flightNumber", tt.value)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, err := GetFlightNumberParam(req, "flightNumber")
			if tt.wantErrMsg != "" {
				require.EqualError(t, err, tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
