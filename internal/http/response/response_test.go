package response

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKWithData(t *testing.T) {
	b, err := json.Marshal(OKWithData(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK","data":{"n":1}}`, string(b))
}

func TestErrorWithCode(t *testing.T) {
	b, err := json.Marshal(ErrorWithCode(CodeQuotaExceeded, "limit reached", map[string]int{"used": 5, "limit": 5}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Error","error":"limit reached","code":"quota_exceeded","details":{"used":5,"limit":5}}`, string(b))
}

func TestValidationError(t *testing.T) {
	type req struct {
		BeatID string `validate:"required"`
		Audio  string `validate:"url"`
		Email  string `validate:"email"`
	}
	err := validator.New().Struct(req{Audio: "nope", Email: "nope"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, CodeValidation, resp.Code)
	assert.Contains(t, resp.Error, "field BeatID is a required field")
	assert.Contains(t, resp.Error, "field Audio must be a valid url")
	assert.Contains(t, resp.Error, "field Email must be a valid email")
}
