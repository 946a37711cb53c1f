package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=25"`
}

type request struct {
	Items []item `json:"requests" validate:"required,min=1,max=2,dive"`
	Skip  int    `json:"skip" validate:"min=0"`
}

func TestStructValid(t *testing.T) {
	err := Struct(&request{Items: []item{{Query: "go", Limit: 5}}})
	assert.NoError(t, err)
}

func TestStructReportsJSONNames(t *testing.T) {
	err := Struct(&request{Items: []item{{Query: "go"}, {Limit: 30}}, Skip: -1})
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))

	fields := map[string]string{}
	for _, f := range reqErr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "requests[1].query is required", fields["requests[1].query"])
	assert.Equal(t, "requests[1].limit must be at most 25", fields["requests[1].limit"])
	assert.Equal(t, "skip must be at least 0", fields["skip"])
}

func TestStructSliceBounds(t *testing.T) {
	err := Struct(&request{Items: []item{{Query: "a"}, {Query: "b"}, {Query: "c"}}})
	require.Error(t, err)
	assert.Equal(t, "requests must contain at most 2 items", err.Error())

	err = Struct(&request{Items: []item{}})
	require.Error(t, err)
	assert.Equal(t, "requests must contain at least 1 items", err.Error())
}

func TestValidatorIsShared(t *testing.T) {
	assert.Same(t, Validator(), Validator())
}
