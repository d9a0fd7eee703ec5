package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/payroll-breakdowns/internal/auth"
	"github.com/nurpe/payroll-breakdowns/internal/config"
	"github.com/nurpe/payroll-breakdowns/internal/excel"
	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/pdf"
	"github.com/nurpe/payroll-breakdowns/internal/registry"
	"github.com/nurpe/payroll-breakdowns/internal/report"
	"github.com/nurpe/payroll-breakdowns/internal/session"
)

const weeklyCSV = `Date,Technician,Customer,Job Fee
2025-03-03,Ann,Acme,100
2025-03-03,Ann,Beta,200
2025-03-04,Ann,Gamma,150
2025-03-04,Ann,Delta,50
2025-03-04,Zed,Omega,80
`

var exportDay = time.Date(2025, 3, 7, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *PayrollService {
	t.Helper()
	cfg := &config.Config{
		Payroll: config.PayrollConfig{RateMaxPct: 1000, Charges: report.DefaultCharges()},
	}
	svc := NewPayrollService(
		session.NewStore(time.Hour),
		auth.NewIssuer("secret", time.Hour),
		excel.NewGenerator(),
		pdf.NewGenerator(),
		cfg,
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return exportDay }
	return svc
}

func startSession(t *testing.T, svc *PayrollService) *session.Session {
	t.Helper()
	started, err := svc.StartSession(context.Background())
	require.NoError(t, err)
	sess, err := svc.Session(started.SessionID)
	require.NoError(t, err)
	return sess
}

func rate(v float64) *float64 {
	return &v
}

func TestStartSession(t *testing.T) {
	svc := newTestService(t)

	started, err := svc.StartSession(context.Background())
	require.NoError(t, err)
	assert.Len(t, started.Technicians, 7)

	id, err := auth.NewParser("secret").Parse(started.Token)
	require.NoError(t, err)
	assert.Equal(t, started.SessionID, id)
}

func TestStartSessionWithoutStore(t *testing.T) {
	svc := NewPayrollService(nil, nil, excel.NewGenerator(), pdf.NewGenerator(), &config.Config{}, zerolog.Nop())

	_, err := svc.StartSession(context.Background())
	assert.ErrorIs(t, err, ErrNoSessions)
}

func TestAddAndEditTechnician(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	added, err := svc.AddTechnician(sess, AddTechnicianInput{Name: "  Ann  ", Truck: true})
	require.NoError(t, err)
	assert.True(t, added.Created)
	assert.Equal(t, model.TechnicianProfile{Name: "Ann", RatePct: 25, Truck: true}, added.Technician)

	again, err := svc.AddTechnician(sess, AddTechnicianInput{Name: "Ann", RatePct: rate(40)})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, 25.0, again.Technician.RatePct)

	edited, err := svc.EditTechnician(sess, EditTechnicianInput{Name: "Ann", RatePct: 30, Meter: true})
	require.NoError(t, err)
	assert.Equal(t, model.TechnicianProfile{Name: "Ann", RatePct: 30, Meter: true}, *edited)

	profiles := svc.ListTechnicians(sess)
	require.Len(t, profiles, 8)
	assert.Equal(t, "Ann", profiles[7].Name)
}

func TestTechnicianValidation(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	_, err := svc.AddTechnician(sess, AddTechnicianInput{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddTechnician(sess, AddTechnicianInput{Name: "Ann", RatePct: rate(1500)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddTechnician(sess, AddTechnicianInput{Name: "Ann", RatePct: rate(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.EditTechnician(sess, EditTechnicianInput{Name: "Nobody", RatePct: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, svc.ListTechnicians(sess), 7)
}

func TestUpload(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	result, err := svc.Upload(context.Background(), sess, "week.csv", strings.NewReader(weeklyCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Technician", "Customer", "Job Fee"}, result.Headers)
	assert.Equal(t, 5, result.RowCount)
	require.Len(t, result.Preview, 5)
	assert.Equal(t, []string{"2025-03-03", "Ann", "Acme", "100"}, result.Preview[0])
	assert.Equal(t, model.ColumnRoles{Date: "Date", Technician: "Technician", JobFee: "Job Fee"}, result.DefaultRoles)
	require.NotNil(t, sess.Upload)
	assert.Equal(t, "week.csv", sess.Upload.FileName)
}

func TestUploadPreviewIsCapped(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	var b strings.Builder
	b.WriteString("Date,Technician,Job Fee\n")
	for i := 0; i < 30; i++ {
		b.WriteString("2025-03-03,Ann,10\n")
	}

	result, err := svc.Upload(context.Background(), sess, "week.csv", strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 30, result.RowCount)
	assert.Len(t, result.Preview, 20)
}

func TestUploadRejectsBadShape(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	_, err := svc.Upload(context.Background(), sess, "week.csv", strings.NewReader("Date,Technician\n2025-03-03,Ann\n"))
	assert.ErrorIs(t, err, ErrInputShape)
	assert.Nil(t, sess.Upload)

	_, err = svc.Upload(context.Background(), sess, "week.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestMatch(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	_, err := svc.Match(sess, model.ColumnRoles{})
	require.ErrorIs(t, err, ErrNoUpload)

	_, err = svc.Upload(context.Background(), sess, "week.csv", strings.NewReader(weeklyCSV))
	require.NoError(t, err)

	out, err := svc.Match(sess, model.ColumnRoles{})
	require.ErrorIs(t, err, ErrNoMatch)
	require.NotNil(t, out)
	assert.Empty(t, out.Match.Matched)
	assert.Equal(t, []string{"Ann", "Zed"}, out.Match.UnmatchedInFile)

	_, err = svc.AddTechnician(sess, AddTechnicianInput{Name: "Ann"})
	require.NoError(t, err)

	out, err = svc.Match(sess, model.ColumnRoles{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann"}, out.Match.Matched)
	assert.Equal(t, []string{"Zed"}, out.Match.UnmatchedInFile)
	assert.Len(t, out.Match.UnmatchedInRegistry, 7)
	assert.Equal(t, "Technician", out.Roles.Technician)

	_, err = svc.Match(sess, model.ColumnRoles{Technician: "Worker"})
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestExport(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	_, err := svc.AddTechnician(sess, AddTechnicianInput{Name: "Ann", RatePct: rate(25), Truck: true})
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), sess, "week.csv", strings.NewReader(weeklyCSV))
	require.NoError(t, err)

	result, err := svc.Export(context.Background(), sess, model.ColumnRoles{})
	require.NoError(t, err)
	assert.Equal(t, "technician_breakdowns_2025-03-07.zip", result.FileName)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, []string{"Zed"}, result.Match.UnmatchedInFile)

	zr, err := zip.NewReader(bytes.NewReader(result.Content), int64(len(result.Content)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "Ann_2025-03-07.xlsx", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Ann", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"Date", "Technician", "Customer", "Job Fee", "Rate (%)", "Amount"}, rows[0])
	assert.Equal(t, "Truck Charge", rows[5][0])
	assert.Equal(t, "Total:", rows[7][0])
	assert.Equal(t, "231.25", rows[7][5])
	for _, row := range rows[1:5] {
		assert.Equal(t, "Ann", row[1])
	}
}

func TestExportWithoutMatchProducesNothing(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	_, err := svc.Upload(context.Background(), sess, "week.csv", strings.NewReader(weeklyCSV))
	require.NoError(t, err)

	result, err := svc.Export(context.Background(), sess, model.ColumnRoles{})
	require.ErrorIs(t, err, ErrNoMatch)
	assert.Nil(t, result)
}

func TestExportSummaryPDF(t *testing.T) {
	svc := newTestService(t)
	sess := startSession(t, svc)

	_, err := svc.AddTechnician(sess, AddTechnicianInput{Name: "Ann"})
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), sess, "week.csv", strings.NewReader(weeklyCSV))
	require.NoError(t, err)

	result, err := svc.ExportSummaryPDF(context.Background(), sess, model.ColumnRoles{})
	require.NoError(t, err)
	assert.Equal(t, "weekly_summary_2025-03-07.pdf", result.FileName)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF-")))
}

func TestGenerateBatch(t *testing.T) {
	svc := newTestService(t)
	table, err := excel.ReadTable(strings.NewReader(weeklyCSV), "week.csv")
	require.NoError(t, err)

	reg := registry.NewEmpty()
	reg.Ensure("Ann", 25, true, false)
	reg.Ensure("Zed", 50, false, true)
	reg.Ensure("Kim", 25, false, false)

	batch, err := svc.GenerateBatch(context.Background(), table, reg, model.ColumnRoles{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Ann", "Zed"}, batch.Match.Matched)
	assert.Equal(t, []string{"Kim"}, batch.Match.UnmatchedInRegistry)
	require.Len(t, batch.Files, 2)
	assert.Equal(t, "Ann_2025-03-07.xlsx", batch.Files[0].Name)
	assert.Equal(t, "Zed_2025-03-07.xlsx", batch.Files[1].Name)

	require.Len(t, batch.Summary.Lines, 2)
	assert.Equal(t, "231.25", batch.Summary.Lines[0].Total.StringFixed(2))
	// 80 * 50% + meter 25 + service 6.25
	assert.Equal(t, "71.25", batch.Summary.Lines[1].Total.StringFixed(2))
	assert.Equal(t, "302.50", batch.Summary.GrandTotal.StringFixed(2))
}

func TestGenerateBatchKeepsTechniciansWithCollidingFileNames(t *testing.T) {
	svc := newTestService(t)
	input := "Date,Technician,Job Fee\n2025-03-03,Ann Lee,100\n2025-03-03,Ann_Lee,200\n"
	table, err := excel.ReadTable(strings.NewReader(input), "week.csv")
	require.NoError(t, err)

	reg := registry.NewEmpty()
	reg.Ensure("Ann Lee", 25, false, false)
	reg.Ensure("Ann_Lee", 25, false, false)

	batch, err := svc.GenerateBatch(context.Background(), table, reg, model.ColumnRoles{})
	require.NoError(t, err)
	require.Len(t, batch.Files, 2)
	assert.Equal(t, "Ann_Lee_2025-03-07.xlsx", batch.Files[0].Name)
	assert.Equal(t, "Ann_Lee_2025-03-07_2.xlsx", batch.Files[1].Name)

	bundle, err := svc.Bundle(batch)
	require.NoError(t, err)
	assert.Equal(t, 2, bundle.Count)

	zr, err := zip.NewReader(bytes.NewReader(bundle.Content), int64(len(bundle.Content)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "Ann_Lee_2025-03-07_2.xlsx", zr.File[1].Name)
}

func TestUniqueFileName(t *testing.T) {
	used := map[string]struct{}{}
	assert.Equal(t, "a.xlsx", uniqueFileName(used, "a.xlsx"))
	assert.Equal(t, "a_2.xlsx", uniqueFileName(used, "a.xlsx"))
	assert.Equal(t, "a_3.xlsx", uniqueFileName(used, "a.xlsx"))
	assert.Equal(t, "a_2_2.xlsx", uniqueFileName(used, "a_2.xlsx"))
}

func TestGenerateBatchHonoursCancellation(t *testing.T) {
	svc := newTestService(t)
	table, err := excel.ReadTable(strings.NewReader(weeklyCSV), "week.csv")
	require.NoError(t, err)

	reg := registry.NewEmpty()
	reg.Ensure("Ann", 25, false, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.GenerateBatch(ctx, table, reg, model.ColumnRoles{})
	assert.ErrorIs(t, err, context.Canceled)
}
