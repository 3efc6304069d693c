package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func validRequest() ProcessRequest {
	return ProcessRequest{
		OwnerID:   "2f1f81ab-6b17-41a7-9e35-6d2a1ab5c001",
		ServiceID: "2f1f81ab-6b17-41a7-9e35-6d2a1ab5c002",
		StartTime: testNow.Add(2 * time.Hour),
		EndTime:   testNow.Add(3 * time.Hour),
	}
}

func violationFor(vs []FieldViolation, field string) *FieldViolation {
	for i := range vs {
		if vs[i].Field == field {
			return &vs[i]
		}
	}
	return nil
}

func TestValidateRequestAccepted(t *testing.T) {
	_, vs := ValidateRequest(testNow, validRequest())
	assert.Empty(t, vs)
}

func TestValidateRequestLeadTimeBoundary(t *testing.T) {
	t.Run("29 minutes ahead is rejected", func(t *testing.T) {
		req := validRequest()
		req.StartTime = testNow.Add(29 * time.Minute)
		req.EndTime = req.StartTime.Add(time.Hour)

		_, vs := ValidateRequest(testNow, req)
		require.NotNil(t, violationFor(vs, "startTime"))
	})

	t.Run("31 minutes ahead is accepted", func(t *testing.T) {
		req := validRequest()
		req.StartTime = testNow.Add(31 * time.Minute)
		req.EndTime = req.StartTime.Add(time.Hour)

		_, vs := ValidateRequest(testNow, req)
		assert.Empty(t, vs)
	})
}

func TestValidateRequestHorizonBoundary(t *testing.T) {
	req := validRequest()
	req.StartTime = testNow.Add(181 * 24 * time.Hour)
	req.EndTime = req.StartTime.Add(time.Hour)

	_, vs := ValidateRequest(testNow, req)
	require.NotNil(t, violationFor(vs, "startTime"))
}

func TestValidateRequestDurationBoundary(t *testing.T) {
	t.Run("exactly 8 hours is accepted", func(t *testing.T) {
		req := validRequest()
		req.EndTime = req.StartTime.Add(8 * time.Hour)

		_, vs := ValidateRequest(testNow, req)
		assert.Empty(t, vs)
	})

	t.Run("8 hours 1 second is rejected", func(t *testing.T) {
		req := validRequest()
		req.EndTime = req.StartTime.Add(8*time.Hour + time.Second)

		_, vs := ValidateRequest(testNow, req)
		require.NotNil(t, violationFor(vs, "endTime"))
	})
}

func TestValidateRequestEndBeforeStart(t *testing.T) {
	req := validRequest()
	req.EndTime = req.StartTime

	_, vs := ValidateRequest(testNow, req)
	require.NotNil(t, violationFor(vs, "endTime"))
}

func TestValidateRequestNotes(t *testing.T) {
	t.Run("501 characters is rejected naming the field", func(t *testing.T) {
		req := validRequest()
		req.Notes = strings.Repeat("x", 501)

		_, vs := ValidateRequest(testNow, req)
		v := violationFor(vs, "notes")
		require.NotNil(t, v)
		assert.Contains(t, v.Message, "500 characters")
	})

	t.Run("notes are trimmed and HTML-escaped", func(t *testing.T) {
		req := validRequest()
		req.Notes = "  <b>fade</b> please  "

		normalized, vs := ValidateRequest(testNow, req)
		require.Empty(t, vs)
		assert.Equal(t, "&lt;b&gt;fade&lt;/b&gt; please", normalized.Notes)
	})
}

func TestValidateRequestPhone(t *testing.T) {
	t.Run("not-a-phone is rejected naming the field", func(t *testing.T) {
		req := validRequest()
		req.ContactPhone = "not-a-phone"

		_, vs := ValidateRequest(testNow, req)
		require.NotNil(t, violationFor(vs, "clientPhone"))
	})

	t.Run("international format is accepted", func(t *testing.T) {
		req := validRequest()
		req.ContactPhone = "+886 912-345-678"

		_, vs := ValidateRequest(testNow, req)
		assert.Empty(t, vs)
	})

	t.Run("over 20 characters is rejected", func(t *testing.T) {
		req := validRequest()
		req.ContactPhone = "+1 (234) 567-8901 ext 23"

		_, vs := ValidateRequest(testNow, req)
		require.NotNil(t, violationFor(vs, "clientPhone"))
	})
}

func TestValidateRequestCollectsAllViolations(t *testing.T) {
	req := validRequest()
	req.StartTime = testNow.Add(5 * time.Minute)
	req.EndTime = req.StartTime
	req.Notes = strings.Repeat("n", 501)
	req.ContactPhone = "not-a-phone"

	_, vs := ValidateRequest(testNow, req)
	assert.NotNil(t, violationFor(vs, "startTime"))
	assert.NotNil(t, violationFor(vs, "endTime"))
	assert.NotNil(t, violationFor(vs, "notes"))
	assert.NotNil(t, violationFor(vs, "clientPhone"))
}
