//go:build integration

package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/consultorio/backend/internal/agenda"
	"github.com/consultorio/backend/internal/leads"
	"github.com/consultorio/backend/internal/repo"
	"github.com/consultorio/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// Conversão cria o paciente e fecha o lead de uma vez; a segunda tentativa é recusada.
func TestConvertLead(t *testing.T) {
	d := testutil.Open(t)
	ctx := context.Background()
	tid := newTherapist(t, d, "Terapeuta Funil")
	other := newTherapist(t, d, "Outro Terapeuta")

	lid, err := repo.CreateLead(ctx, d.Gorm, tid, repo.LeadInput{
		Name: "  Carla Mendes ", Phone: strPtr("(11) 98888-7777"), Email: strPtr("carla@teste.local"),
		Source: strPtr("Instagram"), Urgency: leads.UrgencyHigh, Status: leads.StatusTriagem, Notes: strPtr("Ansiedade"),
	})
	require.NoError(t, err)

	// lead de outro terapeuta não é encontrado
	_, err = leads.Convert(ctx, d.Gorm, other, lid)
	assert.True(t, repo.IsNotFound(err), "err = %v", err)

	conv, err := leads.Convert(ctx, d.Gorm, tid, lid)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusConvertido, conv.Lead.Status)
	require.NotNil(t, conv.Lead.ConvertedPatientID)
	assert.Equal(t, conv.PatientID, *conv.Lead.ConvertedPatientID)

	p, err := repo.PatientByID(ctx, d.Gorm, tid, conv.PatientID)
	require.NoError(t, err)
	assert.Equal(t, "Carla Mendes", p.Name)
	assert.Equal(t, repo.PatientAtivo, p.Status)
	require.NotNil(t, p.Notes)
	assert.Equal(t, "Ansiedade\nOrigem: Instagram", *p.Notes)

	stored, err := repo.LeadByID(ctx, d.Gorm, tid, lid)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusConvertido, stored.Status)
	require.NotNil(t, stored.ConvertedPatientID)
	assert.Equal(t, conv.PatientID, *stored.ConvertedPatientID)

	_, err = leads.Convert(ctx, d.Gorm, tid, lid)
	assert.True(t, errors.Is(err, leads.ErrAlreadyConverted), "err = %v", err)

	var n int
	require.NoError(t, d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE therapist_id = $1`, tid).Scan(&n))
	assert.Equal(t, 1, n)
}

// Falha depois de criar o paciente desfaz tudo: nenhum paciente órfão, lead intacto.
func TestConvertLeadRollsBack(t *testing.T) {
	d := testutil.Open(t)
	ctx := context.Background()
	tid := newTherapist(t, d, "Terapeuta Rollback")
	marker := "Lead Rollback " + uuid.NewString()[:8]

	_, err := d.Pool.Exec(ctx, `
		CREATE OR REPLACE FUNCTION leads_fail_marker() RETURNS trigger AS $$
		BEGIN
			IF NEW.name LIKE 'Lead Rollback %' THEN
				RAISE EXCEPTION 'falha simulada';
			END IF;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`)
	require.NoError(t, err)
	_, err = d.Pool.Exec(ctx, `CREATE TRIGGER leads_fail_marker BEFORE UPDATE ON leads FOR EACH ROW EXECUTE FUNCTION leads_fail_marker()`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = d.Pool.Exec(context.Background(), `DROP TRIGGER IF EXISTS leads_fail_marker ON leads`)
		_, _ = d.Pool.Exec(context.Background(), `DROP FUNCTION IF EXISTS leads_fail_marker()`)
	})

	lid, err := repo.CreateLead(ctx, d.Gorm, tid, repo.LeadInput{Name: marker, Urgency: leads.UrgencyLow, Status: leads.StatusLead})
	require.NoError(t, err)

	_, err = leads.Convert(ctx, d.Gorm, tid, lid)
	require.Error(t, err)
	assert.False(t, errors.Is(err, leads.ErrAlreadyConverted))

	var n int
	require.NoError(t, d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE therapist_id = $1 AND name = $2`, tid, marker).Scan(&n))
	assert.Equal(t, 0, n)
	l, err := repo.LeadByID(ctx, d.Gorm, tid, lid)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusLead, l.Status)
	assert.Nil(t, l.ConvertedPatientID)
}

// Sobreposição considera só sessões não canceladas do mesmo dia.
func TestAppointmentOverlapOnDate(t *testing.T) {
	d := testutil.Open(t)
	ctx := context.Background()
	tid := newTherapist(t, d, "Terapeuta Agenda")
	pid, err := repo.CreatePatient(ctx, d.Gorm, tid, repo.PatientInput{Name: "Paciente Agenda", Status: repo.PatientAtivo})
	require.NoError(t, err)

	const day = "2030-03-11"
	first, err := repo.CreateAppointment(ctx, d.Gorm, tid, repo.AppointmentInput{
		PatientID: pid, Date: day, Time: "10:00", Duration: 50, Type: repo.ApptPresencial, Status: repo.ApptConfirmado,
	})
	require.NoError(t, err)
	_, err = repo.CreateAppointment(ctx, d.Gorm, tid, repo.AppointmentInput{
		PatientID: pid, Date: day, Time: "14:00", Duration: 50, Type: repo.ApptPresencial, Status: repo.ApptCancelado,
	})
	require.NoError(t, err)

	slots, err := repo.ActiveSlotsOnDate(ctx, d.Gorm, tid, day, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)

	c := agenda.FindConflict(slots, "10:30", 50)
	require.NotNil(t, c)
	assert.Equal(t, first, c.ID)
	assert.NotNil(t, agenda.FindConflict(slots, "09:30", 45))
	assert.Nil(t, agenda.FindConflict(slots, "10:50", 50))
	assert.Nil(t, agenda.FindConflict(slots, "09:10", 50))
	// horário cancelado está livre
	assert.Nil(t, agenda.FindConflict(slots, "14:10", 50))

	// na edição a própria sessão não conta
	self, err := repo.ActiveSlotsOnDate(ctx, d.Gorm, tid, day, &first)
	require.NoError(t, err)
	assert.Nil(t, agenda.FindConflict(self, "10:15", 50))

	// outro terapeuta tem agenda própria
	other := newTherapist(t, d, "Outra Agenda")
	otherSlots, err := repo.ActiveSlotsOnDate(ctx, d.Gorm, other, day, nil)
	require.NoError(t, err)
	assert.Empty(t, otherSlots)
}
