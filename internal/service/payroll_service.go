package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/payroll-breakdowns/internal/archive"
	"github.com/nurpe/payroll-breakdowns/internal/config"
	"github.com/nurpe/payroll-breakdowns/internal/excel"
	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/registry"
	"github.com/nurpe/payroll-breakdowns/internal/report"
	"github.com/nurpe/payroll-breakdowns/internal/session"
)

const previewRows = 20

type ExcelGenerator interface {
	Generate(r model.Report) ([]byte, error)
}

type PDFGenerator interface {
	Generate(summary model.Summary) ([]byte, error)
}

type TokenIssuer interface {
	Issue(sessionID uuid.UUID) (string, time.Time, error)
}

type PayrollService struct {
	sessions   *session.Store
	issuer     TokenIssuer
	excel      ExcelGenerator
	pdf        PDFGenerator
	charges    report.Charges
	rateMaxPct float64
	now        func() time.Time
	log        zerolog.Logger
}

// NewPayrollService wires the service. sessions and issuer may be nil when
// only GenerateBatch is used.
func NewPayrollService(
	sessions *session.Store,
	issuer TokenIssuer,
	excel ExcelGenerator,
	pdf PDFGenerator,
	cfg *config.Config,
	log zerolog.Logger,
) *PayrollService {
	return &PayrollService{
		sessions:   sessions,
		issuer:     issuer,
		excel:      excel,
		pdf:        pdf,
		charges:    cfg.Payroll.Charges,
		rateMaxPct: cfg.Payroll.RateMaxPct,
		now:        time.Now,
		log:        log,
	}
}

type StartSessionResult struct {
	SessionID   uuid.UUID                 `json:"session_id"`
	Token       string                    `json:"token"`
	ExpiresAt   time.Time                 `json:"expires_at"`
	Technicians []model.TechnicianProfile `json:"technicians"`
}

func (s *PayrollService) StartSession(ctx context.Context) (*StartSessionResult, error) {
	if s.sessions == nil || s.issuer == nil {
		return nil, ErrNoSessions
	}
	sess := s.sessions.Create()
	token, expiresAt, err := s.issuer.Issue(sess.ID)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("session_id", sess.ID.String()).Msg("session started")
	return &StartSessionResult{
		SessionID:   sess.ID,
		Token:       token,
		ExpiresAt:   expiresAt,
		Technicians: sess.Registry.List(),
	}, nil
}

// Session resolves a live session by id.
func (s *PayrollService) Session(id uuid.UUID) (*session.Session, error) {
	if s.sessions == nil {
		return nil, ErrNoSessions
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: session expired or unknown", ErrNotFound)
	}
	return sess, nil
}

func (s *PayrollService) ListTechnicians(sess *session.Session) []model.TechnicianProfile {
	var profiles []model.TechnicianProfile
	_ = sess.Do(func(sess *session.Session) error {
		profiles = sess.Registry.List()
		return nil
	})
	return profiles
}

type AddTechnicianInput struct {
	Name    string
	RatePct *float64
	Truck   bool
	Meter   bool
}

type TechnicianResult struct {
	Technician model.TechnicianProfile `json:"technician"`
	Created    bool                    `json:"created"`
}

// AddTechnician creates a profile unless the name is already registered, in
// which case the existing profile is returned untouched.
func (s *PayrollService) AddTechnician(sess *session.Session, input AddTechnicianInput) (*TechnicianResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	rate := registry.DefaultRatePct
	if input.RatePct != nil {
		rate = *input.RatePct
	}
	if err := registry.ValidateRate(rate, s.rateMaxPct); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var result TechnicianResult
	_ = sess.Do(func(sess *session.Session) error {
		result.Created = sess.Registry.Ensure(name, rate, input.Truck, input.Meter)
		result.Technician, _ = sess.Registry.Lookup(name)
		return nil
	})
	return &result, nil
}

type EditTechnicianInput struct {
	Name    string
	RatePct float64
	Truck   bool
	Meter   bool
}

func (s *PayrollService) EditTechnician(sess *session.Session, input EditTechnicianInput) (*model.TechnicianProfile, error) {
	if err := registry.ValidateRate(input.RatePct, s.rateMaxPct); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var profile model.TechnicianProfile
	err := sess.Do(func(sess *session.Session) error {
		if !sess.Registry.UpsertFields(input.Name, input.RatePct, input.Truck, input.Meter) {
			return fmt.Errorf("%w: technician %q", ErrNotFound, input.Name)
		}
		profile, _ = sess.Registry.Lookup(input.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type UploadResult struct {
	FileName     string            `json:"file_name"`
	Headers      []string          `json:"headers"`
	Preview      [][]string        `json:"preview"`
	RowCount     int               `json:"row_count"`
	DefaultRoles model.ColumnRoles `json:"default_roles"`
}

// Upload parses a weekly report and keeps it as the session's current table.
func (s *PayrollService) Upload(ctx context.Context, sess *session.Session, fileName string, r io.Reader) (*UploadResult, error) {
	table, err := excel.ReadTable(r, fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputShape, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_ = sess.Do(func(sess *session.Session) error {
		sess.Upload = &session.Upload{FileName: fileName, Table: table, UploadedAt: s.now()}
		return nil
	})

	limit := min(previewRows, len(table.Rows))
	preview := make([][]string, 0, limit)
	for _, row := range table.Rows[:limit] {
		texts := make([]string, len(row))
		for i, v := range row {
			texts[i] = v.Text()
		}
		preview = append(preview, texts)
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("file", fileName).
		Int("rows", len(table.Rows)).
		Msg("report uploaded")

	return &UploadResult{
		FileName:     fileName,
		Headers:      table.Headers,
		Preview:      preview,
		RowCount:     len(table.Rows),
		DefaultRoles: report.DefaultRoles(table.Headers),
	}, nil
}

type MatchOutput struct {
	Roles model.ColumnRoles  `json:"roles"`
	Match report.MatchResult `json:"match"`
}

// Match reports which technicians of the uploaded file are registered. An
// empty intersection is returned as ErrNoMatch together with the result.
func (s *PayrollService) Match(sess *session.Session, roles model.ColumnRoles) (*MatchOutput, error) {
	var out MatchOutput
	err := sess.Do(func(sess *session.Session) error {
		table, err := uploadedTable(sess)
		if err != nil {
			return err
		}
		if out.Roles, err = resolveRoles(table, roles); err != nil {
			return err
		}
		out.Match = report.Match(table, out.Roles.Technician, sess.Registry.List())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Match.Matched) == 0 {
		return &out, ErrNoMatch
	}
	return &out, nil
}

type ExportResult struct {
	FileName string
	Content  []byte
	Count    int
	Match    report.MatchResult
}

// Export builds one workbook per matched technician and zips them.
func (s *PayrollService) Export(ctx context.Context, sess *session.Session, roles model.ColumnRoles) (*ExportResult, error) {
	batch, err := s.sessionBatch(ctx, sess, roles)
	if err != nil {
		return nil, err
	}
	result, err := s.Bundle(batch)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("files", result.Count).
		Int("unmatched_in_file", len(batch.Match.UnmatchedInFile)).
		Int("bytes", len(result.Content)).
		Msg("breakdowns exported")
	return result, nil
}

// Bundle zips the workbooks of a generated batch.
func (s *PayrollService) Bundle(batch *BatchResult) (*ExportResult, error) {
	zip := archive.NewBuilder(s.now())
	for _, f := range batch.Files {
		if err := zip.Add(f.Name, f.Content); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", f.Name, err)
		}
	}
	content, err := zip.Bytes()
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: report.ArchiveName(batch.Date),
		Content:  content,
		Count:    zip.Len(),
		Match:    batch.Match,
	}, nil
}

type PDFResult struct {
	FileName string
	Content  []byte
}

func (s *PayrollService) ExportSummaryPDF(ctx context.Context, sess *session.Session, roles model.ColumnRoles) (*PDFResult, error) {
	batch, err := s.sessionBatch(ctx, sess, roles)
	if err != nil {
		return nil, err
	}
	return s.SummaryPDF(batch)
}

// SummaryPDF renders the weekly summary of a generated batch.
func (s *PayrollService) SummaryPDF(batch *BatchResult) (*PDFResult, error) {
	content, err := s.pdf.Generate(batch.Summary)
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	return &PDFResult{FileName: report.SummaryPDFName(batch.Date), Content: content}, nil
}

type GeneratedFile struct {
	Name    string
	Content []byte
}

type BatchResult struct {
	Date    time.Time
	Roles   model.ColumnRoles
	Match   report.MatchResult
	Reports []model.Report
	Files   []GeneratedFile
	Summary model.Summary
}

// GenerateBatch matches the table against the registry and produces one
// workbook per matched technician that has rows.
func (s *PayrollService) GenerateBatch(ctx context.Context, table model.Table, reg *registry.Registry, roles model.ColumnRoles) (*BatchResult, error) {
	resolved, err := resolveRoles(table, roles)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{
		Date:  dateOnly(s.now()),
		Roles: resolved,
		Match: report.Match(table, resolved.Technician, reg.List()),
	}
	if len(batch.Match.Matched) == 0 {
		return nil, ErrNoMatch
	}

	used := make(map[string]struct{}, len(batch.Match.Matched))
	for _, name := range batch.Match.Matched {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := report.RowsFor(table, resolved.Technician, name)
		if len(rows.Rows) == 0 {
			continue
		}
		profile, ok := reg.Lookup(name)
		if !ok {
			continue
		}

		r := report.Build(rows, profile, resolved, s.charges)
		content, err := s.excel.Generate(r)
		if err != nil {
			return nil, fmt.Errorf("generate workbook for %s: %w", name, err)
		}
		batch.Reports = append(batch.Reports, r)
		fileName := uniqueFileName(used, report.FileName(name, batch.Date))
		if fileName != report.FileName(name, batch.Date) {
			s.log.Warn().
				Str("technician", name).
				Str("file", fileName).
				Msg("file name already taken, added suffix")
		}
		batch.Files = append(batch.Files, GeneratedFile{Name: fileName, Content: content})

		s.log.Debug().
			Str("technician", name).
			Int("jobs", len(r.Rows)).
			Str("total", r.Total.StringFixed(2)).
			Msg("breakdown built")
	}

	batch.Summary = report.Summarize(batch.Reports, batch.Match, batch.Date)
	return batch, nil
}

func (s *PayrollService) sessionBatch(ctx context.Context, sess *session.Session, roles model.ColumnRoles) (*BatchResult, error) {
	var batch *BatchResult
	err := sess.Do(func(sess *session.Session) error {
		table, err := uploadedTable(sess)
		if err != nil {
			return err
		}
		batch, err = s.GenerateBatch(ctx, table, sess.Registry, roles)
		return err
	})
	return batch, err
}

func uploadedTable(sess *session.Session) (model.Table, error) {
	if sess.Upload == nil {
		return model.Table{}, ErrNoUpload
	}
	return sess.Upload.Table, nil
}

func resolveRoles(table model.Table, roles model.ColumnRoles) (model.ColumnRoles, error) {
	resolved, err := report.ResolveRoles(table, roles)
	if err != nil {
		if errors.Is(err, report.ErrUnknownColumn) {
			return resolved, fmt.Errorf("%w: %v", ErrInputShape, err)
		}
		return resolved, err
	}
	return resolved, nil
}

// uniqueFileName returns name, or name with _2, _3, ... before the extension
// when an earlier technician already produced it.
func uniqueFileName(used map[string]struct{}, name string) string {
	candidate := name
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
