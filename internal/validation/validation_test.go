package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librisapp/libris-server/internal/errors"
	"github.com/librisapp/libris-server/internal/validation"
)

type sampleRequest struct {
	Title     string `json:"title" validate:"required,min=1"`
	Published int32  `json:"published" validate:"gte=0"`
}

func TestValidate_Passes(t *testing.T) {
	v := validation.New()
	err := v.Validate(sampleRequest{Title: "Mort", Published: 1987})
	require.NoError(t, err)
}

func TestValidate_FailsWithFieldDetails(t *testing.T) {
	v := validation.New()
	err := v.Validate(sampleRequest{Published: -1})
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrBadUserInput)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))

	fields, ok := domainErr.InvalidArgs.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "published")
}
