package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-explorer/internal/db"
)

// DBHandler exposes read-only SQL over the grid indicator tables.
type DBHandler struct {
	conn *sql.DB
}

// NewDBHandler creates a new database handler. conn may be nil.
func NewDBHandler(conn *sql.DB) *DBHandler {
	return &DBHandler{conn: conn}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("query"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("query"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.conn == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	tables, err := db.Tables(ctx, h.conn)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	out := &TablesOutput{}
	out.Body.Tables = tables
	if out.Body.Tables == nil {
		out.Body.Tables = []string{}
	}
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"Read-only SQL query" example:"SELECT * FROM climate LIMIT 5"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body struct {
		Columns []string         `json:"columns" doc:"Column names"`
		Rows    []map[string]any `json:"rows" doc:"Query results"`
		Count   int              `json:"count" doc:"Number of rows returned"`
	}
}

// Query executes a read-only SQL query against DuckDB.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.conn == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	res, err := db.Query(ctx, h.conn, input.Body.Query)
	if err != nil {
		if eris.Is(err, db.ErrNotReadOnly) {
			return nil, huma.Error403Forbidden("Only read queries are allowed")
		}
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	out := &QueryOutput{}
	out.Body.Columns = res.Columns
	out.Body.Rows = res.Rows
	out.Body.Count = len(res.Rows)
	return out, nil
}
