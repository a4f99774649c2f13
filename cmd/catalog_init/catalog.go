package main

import (
	"context"
	"fmt"
	"strings"

	"smart-check/internal/logger"
	"smart-check/internal/service"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

type catalogIDs struct {
	database sdk.DatabaseID
	tasks    sdk.TableID
	reports  sdk.TableID
}

var columnDefs = map[string]sdk.Column{
	"id":          {Name: "id", Type: "VARCHAR(36)", IsPk: true, Comment: "UUID"},
	"title":       {Name: "title", Type: "VARCHAR(50)", Comment: "título da tarefa"},
	"user_id":     {Name: "user_id", Type: "VARCHAR(36)", Comment: "usuário responsável"},
	"activity_id": {Name: "activity_id", Type: "VARCHAR(36)", Comment: "atividade da tarefa"},
	"tag":         {Name: "tag", Type: "VARCHAR(30)", Comment: "etiqueta livre"},
	"due_date":    {Name: "due_date", Type: "DATETIME", Comment: "prazo"},
	"status":      {Name: "status", Type: "VARCHAR(16)", Comment: "open, reported ou finished"},
	"task_id":     {Name: "task_id", Type: "VARCHAR(36)", Comment: "tarefa reportada"},
	"problem_id":  {Name: "problem_id", Type: "VARCHAR(36)", Comment: "categoria do problema"},
	"description": {Name: "description", Type: "VARCHAR(500)", Comment: "descrição do problema"},
	"created_at":  {Name: "created_at", Type: "DATETIME", Comment: "data de criação"},
}

// tableColumns keeps the table layout in the same order the CSV mirror writes.
func tableColumns(names []string) ([]sdk.Column, error) {
	out := make([]sdk.Column, 0, len(names))
	for _, n := range names {
		col, ok := columnDefs[n]
		if !ok {
			return nil, fmt.Errorf("no column definition for %q", n)
		}
		out = append(out, col)
	}
	return out, nil
}

func initCatalog(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (catalogIDs, error) {
	var ids catalogIDs
	dbResp, err := client.CreateDatabase(ctx, &sdk.DatabaseCreateRequest{
		CatalogID:    catalogID,
		DatabaseName: dbName,
		Comment:      "Smart Check: tarefas e reportes",
	})
	switch {
	case err == nil:
		ids.database = dbResp.DatabaseID
		logger.Info("catalog: database created", "id", ids.database)
	case isDuplicate(err):
		logger.Info("catalog: database already exists, discovering ID", "name", dbName)
		if ids.database, err = discoverDatabaseID(ctx, client, catalogID, dbName); err != nil {
			return ids, err
		}
	default:
		return ids, fmt.Errorf("create database: %w", err)
	}

	tables := []struct {
		name    string
		columns []string
		dst     *sdk.TableID
	}{
		{"tasks", service.TaskColumns, &ids.tasks},
		{"reports", service.ReportColumns, &ids.reports},
	}
	for _, t := range tables {
		cols, err := tableColumns(t.columns)
		if err != nil {
			return ids, err
		}
		resp, err := client.CreateTable(ctx, &sdk.TableCreateRequest{
			DatabaseID: ids.database,
			Name:       t.name,
			Columns:    cols,
			Comment:    t.name,
		})
		if err != nil {
			if isDuplicate(err) {
				logger.Info("catalog: table already exists, skipping", "name", t.name)
				continue
			}
			return ids, fmt.Errorf("create table %s: %w", t.name, err)
		}
		*t.dst = resp.TableID
		logger.Info("catalog: table created", "name", t.name, "id", resp.TableID)
	}
	return ids, nil
}

func discoverDatabaseID(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, error) {
	resp, err := client.ListDatabases(ctx, &sdk.DatabaseListRequest{CatalogID: catalogID})
	if err != nil {
		return 0, fmt.Errorf("list databases: %w", err)
	}
	for _, db := range resp.List {
		if db.DatabaseName == dbName {
			logger.Info("catalog: database discovered", "id", db.DatabaseID)
			return db.DatabaseID, nil
		}
	}
	return 0, fmt.Errorf("database %s not found in catalog %d", dbName, catalogID)
}

func isDuplicate(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "already exist") || strings.Contains(s, "exists") || strings.Contains(s, "conflict")
}
