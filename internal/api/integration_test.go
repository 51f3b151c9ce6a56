//go:build integration

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/consultorio/backend/internal/auth"
	"github.com/consultorio/backend/internal/config"
	"github.com/consultorio/backend/internal/meet"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Router com banco real e um terapeuta cadastrado; devolve o token dele.
func newDBRouter(t *testing.T) (*mux.Router, string) {
	t.Helper()
	d := testutil.Open(t)
	h := &Handler{
		DB:     d.Gorm,
		Pool:   d.Pool,
		Cfg:    &config.Config{JWTSecret: testSecret, AppPublicURL: "http://app.local"},
		Logger: zap.NewNop(),
		Meet:   meet.Local{},
	}
	r := mux.NewRouter()
	h.Routes(r, nil)

	email := uuid.NewString()[:8] + "@teste.local"
	tid, err := repo.CreateTherapist(context.Background(), d.Pool, email, "hash", "Terapeuta HTTP", auth.RoleTherapist)
	require.NoError(t, err)
	tok, err := auth.BuildJWT(testSecret, tid.String(), auth.RoleTherapist, "Terapeuta HTTP", time.Hour)
	require.NoError(t, err)
	return r, "Bearer " + tok
}

func decodeBody(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &m), string(body))
	return m
}

func TestAppointmentConflictOverHTTP(t *testing.T) {
	r, tok := newDBRouter(t)

	rr := do(r, http.MethodPost, "/api/patients", tok, `{"name":"Paciente HTTP"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	pid, _ := decodeBody(t, rr.Body.Bytes())["id"].(string)
	require.NotEmpty(t, pid)

	rr = do(r, http.MethodPost, "/api/appointments", tok,
		`{"patient_id":"`+pid+`","date":"2030-04-02","time":"10:00","duration":50,"status":"Confirmado"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first, _ := decodeBody(t, rr.Body.Bytes())["id"].(string)

	rr = do(r, http.MethodPost, "/api/appointments", tok,
		`{"patient_id":"`+pid+`","date":"2030-04-02","time":"10:30","duration":50}`)
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	body := decodeBody(t, rr.Body.Bytes())
	assert.Equal(t, first, body["conflict_id"])
	assert.Equal(t, "10:00", body["conflict_at"])

	// encostado no fim da anterior não conflita
	rr = do(r, http.MethodPost, "/api/appointments", tok,
		`{"patient_id":"`+pid+`","date":"2030-04-02","time":"10:50","duration":50}`)
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestConvertLeadOverHTTP(t *testing.T) {
	r, tok := newDBRouter(t)

	rr := do(r, http.MethodPost, "/api/leads", tok, `{"name":"Diego Lima","phone":"(11) 97777-6666","source":"Indicação"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	lid, _ := decodeBody(t, rr.Body.Bytes())["id"].(string)
	require.NotEmpty(t, lid)

	rr = do(r, http.MethodPost, "/api/leads/"+lid+"/convert", tok, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decodeBody(t, rr.Body.Bytes())
	assert.NotEmpty(t, body["patient_id"])
	assert.Contains(t, body["welcome_link"], "https://wa.me/5511977776666")

	rr = do(r, http.MethodPost, "/api/leads/"+lid+"/convert", tok, "")
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())

	// edição parcial por PATCH preserva o status convertido
	rr = do(r, http.MethodPatch, "/api/leads/"+lid, tok, `{"notes":"Primeira sessão marcada"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body = decodeBody(t, rr.Body.Bytes())
	assert.Equal(t, "Convertido", body["status"])
	assert.Equal(t, "Primeira sessão marcada", body["notes"])
}
