package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/pkg/errs"
)

type draftInput struct {
	Text string `json:"text"`
}

func newRequest(contentType, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPut, "/api/draft", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestBindJSON(t *testing.T) {
	var in draftInput
	err := BindJSON(httptest.NewRecorder(), newRequest("application/json; charset=utf-8", `{"text":"hello"}`), &in)

	require.Nil(t, err)
	assert.Equal(t, "hello", in.Text)
}

func TestBindJSONErrors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    int
	}{
		{"wrong content type", "text/plain", `{"text":"hello"}`, errs.ErrUnsupportedMediaType},
		{"missing content type", "", `{"text":"hello"}`, errs.ErrUnsupportedMediaType},
		{"malformed", "application/json", `{"text":`, errs.ErrInvalidJSONFormat},
		{"unknown field", "application/json", `{"txt":"hello"}`, errs.ErrInvalidJSONFormat},
		{"trailing data", "application/json", `{"text":"a"}{"text":"b"}`, errs.ErrExtraContentInBody},
		{"too large", "application/json", `{"text":"` + strings.Repeat("a", int(MaxBodyBytes)) + `"}`, errs.ErrRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in draftInput
			err := BindJSON(httptest.NewRecorder(), newRequest(tt.contentType, tt.body), &in)

			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
		})
	}
}
