package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"smart-check/internal/config"
	"smart-check/internal/model"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

const catalogTimeLayout = "2006-01-02 15:04:05"

// Column layouts of the mirrored tables. cmd/catalog_init creates them.
var (
	TaskColumns   = []string{"id", "title", "user_id", "activity_id", "tag", "due_date", "status", "created_at"}
	ReportColumns = []string{"id", "task_id", "problem_id", "description", "created_at"}
)

// CatalogSync appends created tasks and reports to MOI catalog tables so
// they can be queried through NL2SQL. Uploads run in the background and
// failures are only logged. A nil *CatalogSync does nothing.
type CatalogSync struct {
	raw        *sdk.RawClient
	sdk        *sdk.SDKClient
	databaseID sdk.DatabaseID
	tasksID    sdk.TableID
	reportsID  sdk.TableID
	wg         sync.WaitGroup
}

// NewCatalogSync returns nil when raw is nil.
func NewCatalogSync(raw *sdk.RawClient, cfg config.MOIConfig) *CatalogSync {
	if raw == nil {
		return nil
	}
	return &CatalogSync{
		raw:        raw,
		sdk:        sdk.NewSDKClient(raw),
		databaseID: sdk.DatabaseID(cfg.DatabaseID),
		tasksID:    sdk.TableID(cfg.TasksTableID),
		reportsID:  sdk.TableID(cfg.ReportTableID),
	}
}

func (s *CatalogSync) MirrorTask(ctx context.Context, t *model.Task) {
	if s == nil || s.tasksID == 0 {
		return
	}
	s.async(ctx, s.tasksID, taskCSV(t), "task_"+t.ID+".csv", TaskColumns)
}

func (s *CatalogSync) MirrorReport(ctx context.Context, r *model.Report) {
	if s == nil || s.reportsID == 0 {
		return
	}
	s.async(ctx, s.reportsID, reportCSV(r), "report_"+r.ID+".csv", ReportColumns)
}

// Wait blocks until pending uploads are done.
func (s *CatalogSync) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}

func (s *CatalogSync) async(ctx context.Context, tableID sdk.TableID, csv, fileName string, columns []string) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		s.importCSV(ctx, tableID, csv, fileName, columnMapping(columns))
	}()
}

func taskCSV(t *model.Task) string {
	return csvLine(t.ID, t.Title, t.UserID, t.ActivityID, t.Tag,
		t.DueDate.Format(catalogTimeLayout), t.Status, t.CreatedAt.Format(catalogTimeLayout))
}

func reportCSV(r *model.Report) string {
	return csvLine(r.ID, r.TaskID, r.ProblemID, r.Description, r.CreatedAt.Format(catalogTimeLayout))
}

func columnMapping(columns []string) []sdk.FileAndTableColumnMapping {
	out := make([]sdk.FileAndTableColumnMapping, len(columns))
	for i, c := range columns {
		out[i] = sdk.FileAndTableColumnMapping{TableColumn: c, Column: c, ColNumInFile: int32(i + 1)}
	}
	return out
}

func (s *CatalogSync) importCSV(ctx context.Context, tableID sdk.TableID, csv, fileName string, mapping []sdk.FileAndTableColumnMapping) {
	resp, err := s.raw.UploadLocalFile(ctx, bytes.NewReader([]byte(csv)), fileName, []sdk.FileMeta{{Filename: fileName, Path: "/"}})
	if err != nil {
		slog.Warn("catalog sync: upload failed", "table", tableID, "err", err)
		return
	}
	if len(resp.ConnFileIds) == 0 {
		slog.Warn("catalog sync: no conn_file_ids", "table", tableID)
		return
	}

	_, err = s.sdk.ImportLocalFileToTable(ctx, &sdk.TableConfig{
		ConnFileIDs:      resp.ConnFileIds,
		NewTable:         false,
		DatabaseID:       s.databaseID,
		TableID:          tableID,
		IsColumnName:     false,
		RowStart:         1,
		Conflict:         1,
		ExistedTable:     mapping,
		ExistedTableOpts: sdk.ExistedTableOptions{Method: sdk.ExistedTableOptionAppend},
	})
	if err != nil {
		slog.Warn("catalog sync: import failed", "table", tableID, "err", err)
		return
	}
	slog.Info("catalog sync: ok", "table", tableID, "file", fileName)
}

func csvLine(fields ...string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(esc(f))
	}
	b.WriteByte('\n')
	return b.String()
}

func esc(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

var _ Mirror = (*CatalogSync)(nil)
