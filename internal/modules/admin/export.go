package admin

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yungbote/studyflow-backend/internal/data/repos"
	types "github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q: %w", s, types.ErrInvalidArgument)
	}
}

// ExportFile describes the rendered export for the HTTP layer.
type ExportFile struct {
	Filename    string
	ContentType string
}

var responseHeader = []string{"response_id", "user_id", "email", "stimulus_version", "phase", "activity", "training_day", "submitted_on", "created_at", "payload"}

var participantHeader = []string{"user_id", "email", "first_name", "last_name", "stimulus_version", "current_phase", "training_day", "baseline_date", "account_active", "completed", "completed_activities"}

type exportData struct {
	users     map[uuid.UUID]*types.User
	progress  map[uuid.UUID]*study.Progress
	order     []uuid.UUID
	responses map[study.Phase][]*study.Response
}

func (u Usecases) gatherExport(ctx context.Context) (*exportData, error) {
	dbc := dbctx.Context{Ctx: ctx}
	out := &exportData{
		users:     map[uuid.UUID]*types.User{},
		progress:  map[uuid.UUID]*study.Progress{},
		responses: map[study.Phase][]*study.Response{},
	}

	for offset := 0; ; {
		page, _, err := u.deps.Users.List(dbc, repos.UserListFilter{Role: types.RoleParticipant, Limit: 500, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list participants: %w", err)
		}
		for _, usr := range page {
			out.users[usr.ID] = usr
			out.order = append(out.order, usr.ID)
		}
		if len(page) < 500 {
			break
		}
		offset += len(page)
	}

	rows, err := u.deps.Progress.GetByUserIDs(dbc, out.order)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	for _, p := range rows {
		out.progress[p.UserID] = p
	}

	responses, err := u.deps.Responses.List(dbc, repos.ResponseFilter{})
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	for _, r := range responses {
		out.responses[r.Phase] = append(out.responses[r.Phase], r)
	}
	return out, nil
}

func (d *exportData) responseRow(r *study.Response) []string {
	email, version := "", ""
	if usr, ok := d.users[r.UserID]; ok {
		email = usr.Email
		version = strconv.Itoa(usr.StimulusVersion)
	}
	day := ""
	if r.TrainingDay > 0 {
		day = strconv.Itoa(r.TrainingDay)
	}
	return []string{
		r.ID.String(),
		r.UserID.String(),
		email,
		version,
		string(r.Phase),
		string(r.Activity),
		day,
		r.SubmittedOn.String(),
		r.CreatedAt.UTC().Format(time.RFC3339),
		string(r.Payload),
	}
}

func (d *exportData) participantRow(id uuid.UUID) []string {
	usr := d.users[id]
	row := []string{usr.ID.String(), usr.Email, usr.FirstName, usr.LastName, strconv.Itoa(usr.StimulusVersion)}
	p, ok := d.progress[id]
	if !ok {
		return append(row, "", "", "", "", "", "")
	}
	return append(row,
		string(p.CurrentPhase),
		strconv.Itoa(p.TrainingDay),
		p.BaselineDate.String(),
		strconv.FormatBool(p.AccountActive),
		strconv.FormatBool(p.CompletedFlag),
		strings.Join(p.Completed.Keys(), ";"),
	)
}

// Export writes every participant and response to w in the given format.
func (u Usecases) Export(ctx context.Context, format ExportFormat, w io.Writer) (*ExportFile, error) {
	data, err := u.gatherExport(ctx)
	if err != nil {
		return nil, err
	}
	stamp := u.deps.Cal.Today().String()

	switch format {
	case ExportCSV:
		if err := writeCSVZip(data, w); err != nil {
			return nil, err
		}
		return &ExportFile{Filename: "study-export-" + stamp + ".zip", ContentType: "application/zip"}, nil
	case ExportXLSX:
		if err := writeWorkbook(data, w); err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    "study-export-" + stamp + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q: %w", format, types.ErrInvalidArgument)
	}
}

func writeCSVZip(data *exportData, w io.Writer) error {
	zw := zip.NewWriter(w)

	write := func(name string, header []string, rows [][]string) error {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", name, err)
		}
		cw := csv.NewWriter(f)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	participants := make([][]string, 0, len(data.order))
	for _, id := range data.order {
		participants = append(participants, data.participantRow(id))
	}
	if err := write("participants.csv", participantHeader, participants); err != nil {
		return err
	}
	for _, phase := range study.Phases {
		rows := make([][]string, 0, len(data.responses[phase]))
		for _, r := range data.responses[phase] {
			rows = append(rows, data.responseRow(r))
		}
		if err := write(string(phase)+".csv", responseHeader, rows); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeWorkbook(data *exportData, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	writeSheet := func(name string, header []string, rows [][]string) error {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
		if err := f.SetSheetRow(name, "A1", toCells(header)); err != nil {
			return err
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, toCells(row)); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", name, i+2, err)
			}
		}
		return nil
	}

	participants := make([][]string, 0, len(data.order))
	for _, id := range data.order {
		participants = append(participants, data.participantRow(id))
	}
	if err := writeSheet("participants", participantHeader, participants); err != nil {
		return err
	}
	for _, phase := range study.Phases {
		rows := make([][]string, 0, len(data.responses[phase]))
		for _, r := range data.responses[phase] {
			rows = append(rows, data.responseRow(r))
		}
		if err := writeSheet(string(phase), responseHeader, rows); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if idx, err := f.GetSheetIndex("participants"); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func toCells(row []string) *[]interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return &cells
}
