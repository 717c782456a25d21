package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesignation_IsValid(t *testing.T) {
	for _, d := range Designations {
		assert.True(t, d.IsValid(), string(d))
	}
	assert.False(t, Designation("Business Owners").IsValid())
	assert.False(t, Designation("").IsValid())
	assert.False(t, Designation("other").IsValid())
}

func TestParseFieldSet(t *testing.T) {
	assert.Equal(t, FieldSetProfessional, ParseFieldSet("professional"))
	assert.Equal(t, FieldSetProfessional, ParseFieldSet(" Professional "))
	assert.Equal(t, FieldSetBasic, ParseFieldSet("basic"))
	assert.Equal(t, FieldSetBasic, ParseFieldSet(""))
}

func TestWaitlistRequest_Normalized(t *testing.T) {
	raw := WaitlistRequest{
		Name:        "  Jane Doe ",
		Email:       " jane@example.com\n",
		Designation: "",
		Company:     " Acme ",
		Contact:     " 077 ",
		Phone:       "",
	}

	t.Run("professional applies default designation", func(t *testing.T) {
		got := raw.Normalized(FieldSetProfessional)
		assert.Equal(t, WaitlistRequest{
			Name:        "Jane Doe",
			Email:       "jane@example.com",
			Designation: "Working Professional",
			Company:     "Acme",
			Contact:     "077",
		}, got)
	})

	t.Run("basic drops optional fields", func(t *testing.T) {
		withDesignation := raw
		withDesignation.Designation = "Other"
		got := withDesignation.Normalized(FieldSetBasic)
		assert.Equal(t, WaitlistRequest{Name: "Jane Doe", Email: "jane@example.com"}, got)
	})

	t.Run("keeps explicit designation", func(t *testing.T) {
		withDesignation := raw
		withDesignation.Designation = " Mompreneur "
		assert.Equal(t, "Mompreneur", withDesignation.Normalized(FieldSetProfessional).Designation)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := raw.Normalized(FieldSetProfessional)
		assert.Equal(t, once, once.Normalized(FieldSetProfessional))
	})
}

func TestSubmissionResult_JSONHidesCause(t *testing.T) {
	res := SubmissionResult{OK: false, Message: "Spam check failed.", Cause: errors.New("honeypot")}

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"message":"Spam check failed.","deduped":false}`, string(body))
}
