package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("workflow %s", "x"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("loading: %w", NotFound("x")), http.StatusNotFound},
		{"gorm missing row", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"bad request", BadRequest("duplicate version"), http.StatusBadRequest},
		{"forbidden", Forbidden("not your approval"), http.StatusForbidden},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil, "framework", 1))

	err := FromDB(gorm.ErrRecordNotFound, "framework", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "framework with ID abc not found")

	other := errors.New("connection reset")
	assert.Equal(t, other, FromDB(other, "framework", "abc"))
}

func TestErrorMessage(t *testing.T) {
	err := BadRequest("framework %s version %s already exists", "ISO27001", "2022")
	assert.Equal(t, "framework ISO27001 version 2022 already exists", err.Error())
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.NotErrorIs(t, err, ErrNotFound)
}
