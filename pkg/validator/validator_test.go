package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string   `validate:"required,email"`
	Slugs []string `validate:"dive,slug"`
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(sample{Email: "a@b.co", Slugs: []string{"hotel_Access"}}))

	errs := ValidateStruct(sample{Email: "nope", Slugs: []string{"bad slug"}})
	require.Len(t, errs, 2)
	assert.Equal(t, "sample.Email", errs[0].FailedField)
	assert.Equal(t, "email", errs[0].Tag)
	assert.Equal(t, "slug", errs[1].Tag)
}
