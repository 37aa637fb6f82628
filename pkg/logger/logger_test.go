package logger

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryAccessorsWithoutInit(t *testing.T) {
	// Accessors must hand back a usable entry even when Init was never
	// called, so chained calls do not crash.
	entry := WithField("key", "value")
	require.NotNil(t, entry)
	assert.NotPanics(t, func() { entry.Debug("field entry") })

	entry = WithFields(logrus.Fields{"a": 1, "b": 2})
	require.NotNil(t, entry)
	assert.NotPanics(t, func() { entry.Debug("fields entry") })

	entry = WithError(errors.New("boom"))
	require.NotNil(t, entry)
	assert.NotPanics(t, func() { entry.Debug("error entry") })
}

func TestStructuredEventsWithoutInit(t *testing.T) {
	assert.NotPanics(t, func() {
		LogUserAction("user-1", "login", map[string]interface{}{"ip": "127.0.0.1"})
		LogAppointmentEvent("approved", "appt-1", "prof-1", nil)
		LogCallEvent("call_started", "room-1", "user-1", map[string]interface{}{"call_type": "video"})
	})
}

func TestLevelFunctionsWithoutInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Debug("debug line")
		Infof("info %s", "line")
		Warn("warn line")
		Error("error line")
	})
}
