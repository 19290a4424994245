package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("RESCUER_LIVENESS_WINDOW", "")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.Url)
	assert.Equal(t, "test", conf.DatabaseName)
	assert.Equal(t, "memory", conf.StoreBackend)
	assert.Equal(t, 5*time.Minute, conf.RescuerLivenessWindow)
	assert.False(t, conf.AllowSelfReclaim)
}

func TestNewParsesOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("ALLOW_SELF_RECLAIM", "true")
	t.Setenv("RESCUER_LIVENESS_WINDOW", "90s")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	conf := New()

	assert.Equal(t, "9999", conf.Port)
	assert.Equal(t, "mongo", conf.StoreBackend)
	assert.True(t, conf.AllowSelfReclaim)
	assert.Equal(t, 90*time.Second, conf.RescuerLivenessWindow)
	assert.Equal(t, "AC123", conf.Twilio.AccountSID)
}

func TestNewIgnoresUnparseableOverrides(t *testing.T) {
	t.Setenv("ALLOW_SELF_RECLAIM", "yep")
	t.Setenv("RESCUER_LIVENESS_WINDOW", "soon")
	conf := New()

	assert.False(t, conf.AllowSelfReclaim)
	assert.Equal(t, 5*time.Minute, conf.RescuerLivenessWindow)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("error it borked", http.StatusBadRequest, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"Response":{"Message":"error it borked","Error":"bad request"}}`, rr.Body.String())
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(2))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(0))
}
