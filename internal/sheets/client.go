// Package sheets is a low-level client for the external spreadsheet API.
// It exposes row-oriented primitives (resolve, read, upsert, delete, ensure)
// on top of the metadata GET, values GET, and batchUpdate endpoints.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/googleauth"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"

	cellFont     = "Comfortaa"
	cellFontSize = 10
)

// Cell is one typed value destined for a row. Numbers and strings are tagged
// so the API stores them as their native type.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

// Str makes a string cell.
func Str(s string) Cell { return Cell{Text: s} }

// Num makes a numeric cell.
func Num(n float64) Cell { return Cell{Number: n, Numeric: true} }

// Display is the formatted value used for key matching against read rows.
func (c Cell) Display() string {
	if c.Numeric {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Text
}

// Options configures a Client. Zero values get production defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      googleauth.TokenProvider
}

// Client talks to the spreadsheet API. Tab ids are re-resolved by name on
// every call rather than cached, so a recreated tab never leaves a stale id
// behind.
type Client struct {
	baseURL string
	http    *http.Client
	token   googleauth.TokenProvider
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: base, http: hc, token: opts.Token}
}

// ResolveTabID looks up a tab's internal id by name from document metadata.
func (c *Client) ResolveTabID(ctx context.Context, doc, tab string) (int64, error) {
	var meta struct {
		Sheets []struct {
			Properties struct {
				Title   string `json:"title"`
				SheetID int64  `json:"sheetId"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := c.get(ctx, "/v4/spreadsheets/"+doc, &meta); err != nil {
		return 0, err
	}
	for _, s := range meta.Sheets {
		if s.Properties.Title == tab {
			return s.Properties.SheetID, nil
		}
	}
	return 0, fmt.Errorf("tab %q: %w", tab, errs.ErrNotFound)
}

// ReadRows returns every row of a tab, header included.
func (c *Client) ReadRows(ctx context.Context, doc, tab string) ([][]string, error) {
	var out struct {
		Values [][]string `json:"values"`
	}
	path := "/v4/spreadsheets/" + doc + "/values/" + url.PathEscape(tab)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// UpsertRow places a row keyed by cells[matchCol]. An existing row with the
// same key is replaced in place; otherwise the row is appended after the last
// occupied row. The scan-then-write is not transactional: concurrent writers
// to the same tab can lose an update, so callers serialize per (doc, tab).
func (c *Client) UpsertRow(ctx context.Context, doc, tab string, cells []Cell, matchCol int) error {
	if matchCol < 0 || matchCol >= len(cells) {
		return fmt.Errorf("match column %d out of range", matchCol)
	}
	rows, err := c.ReadRows(ctx, doc, tab)
	if err != nil {
		return err
	}
	target := len(rows)
	key := cells[matchCol].Display()
	for i := 1; i < len(rows); i++ { // row 0 is the header
		if matchCol < len(rows[i]) && rows[i][matchCol] == key {
			target = i
			break
		}
	}
	sheetID, err := c.ResolveTabID(ctx, doc, tab)
	if err != nil {
		return err
	}
	return c.batchUpdate(ctx, doc, []request{
		updateCells(sheetID, int64(target), cells, false),
	})
}

// DeleteRow removes the row whose matchCol cell equals matchValue. A missing
// tab or key is a successful no-op, so delete is idempotent.
func (c *Client) DeleteRow(ctx context.Context, doc, tab, matchValue string, matchCol int) error {
	rows, err := c.ReadRows(ctx, doc, tab)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	target := -1
	for i := 1; i < len(rows); i++ {
		if matchCol < len(rows[i]) && rows[i][matchCol] == matchValue {
			target = i
			break
		}
	}
	if target < 0 {
		return nil
	}
	sheetID, err := c.ResolveTabID(ctx, doc, tab)
	if err != nil {
		return err
	}
	return c.batchUpdate(ctx, doc, []request{{
		DeleteDimension: &deleteDimensionRequest{Range: dimensionRange{
			SheetID:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(target),
			EndIndex:   int64(target) + 1,
		}},
	}})
}

// DeleteRowsWithPrefix removes every row whose matchCol cell starts with
// prefix. Used for composite day keys, where the surviving record no longer
// says how many rows were written. Rows are deleted bottom-up so earlier
// indices stay valid.
func (c *Client) DeleteRowsWithPrefix(ctx context.Context, doc, tab, prefix string, matchCol int) error {
	rows, err := c.ReadRows(ctx, doc, tab)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	var targets []int64
	for i := 1; i < len(rows); i++ {
		if matchCol < len(rows[i]) && strings.HasPrefix(rows[i][matchCol], prefix) {
			targets = append(targets, int64(i))
		}
	}
	if len(targets) == 0 {
		return nil
	}
	sheetID, err := c.ResolveTabID(ctx, doc, tab)
	if err != nil {
		return err
	}
	reqs := make([]request, 0, len(targets))
	for i := len(targets) - 1; i >= 0; i-- {
		reqs = append(reqs, request{DeleteDimension: &deleteDimensionRequest{Range: dimensionRange{
			SheetID:    sheetID,
			Dimension:  "ROWS",
			StartIndex: targets[i],
			EndIndex:   targets[i] + 1,
		}}})
	}
	return c.batchUpdate(ctx, doc, reqs)
}

// EnsureTab guarantees the tab exists and carries exactly the expected
// header, creating the tab or rewriting a drifted header as needed.
func (c *Client) EnsureTab(ctx context.Context, doc, tab string, headers []string) error {
	_, err := c.ResolveTabID(ctx, doc, tab)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		reqs := []request{{AddSheet: &addSheetRequest{Properties: sheetProperties{Title: tab}}}}
		if err := c.batchUpdate(ctx, doc, reqs); err != nil {
			return err
		}
		return c.WriteHeader(ctx, doc, tab, headers)
	case err != nil:
		return err
	}
	rows, err := c.ReadRows(ctx, doc, tab)
	if err != nil {
		return err
	}
	if len(rows) > 0 && equalHeader(rows[0], headers) {
		return nil
	}
	return c.WriteHeader(ctx, doc, tab, headers)
}

// WriteHeader writes the bold header row at row 0.
func (c *Client) WriteHeader(ctx context.Context, doc, tab string, headers []string) error {
	sheetID, err := c.ResolveTabID(ctx, doc, tab)
	if err != nil {
		return err
	}
	cells := make([]Cell, len(headers))
	for i, h := range headers {
		cells[i] = Str(h)
	}
	return c.batchUpdate(ctx, doc, []request{
		updateCells(sheetID, 0, cells, true),
	})
}

// BatchCreateTabs creates every named tab at its slice index in one request.
func (c *Client) BatchCreateTabs(ctx context.Context, doc string, tabs []string) error {
	reqs := make([]request, 0, len(tabs))
	for i, tab := range tabs {
		idx := int64(i)
		reqs = append(reqs, request{AddSheet: &addSheetRequest{
			Properties: sheetProperties{Title: tab, Index: &idx},
		}})
	}
	return c.batchUpdate(ctx, doc, reqs)
}

// DeleteTab removes a tab by name; a missing tab is a no-op.
func (c *Client) DeleteTab(ctx context.Context, doc, tab string) error {
	sheetID, err := c.ResolveTabID(ctx, doc, tab)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.batchUpdate(ctx, doc, []request{{
		DeleteSheet: &deleteSheetRequest{SheetID: sheetID},
	}})
}

// WriteColumn writes values down one column starting at startRow.
func (c *Client) WriteColumn(ctx context.Context, doc, tab string, col, startRow int64, values []string) error {
	sheetID, err := c.ResolveTabID(ctx, doc, tab)
	if err != nil {
		return err
	}
	reqs := make([]request, 0, len(values))
	for i, v := range values {
		req := updateCells(sheetID, startRow+int64(i), []Cell{Str(v)}, false)
		req.UpdateCells.Start.ColumnIndex = col
		reqs = append(reqs, req)
	}
	return c.batchUpdate(ctx, doc, reqs)
}

// AddNamedRange names a cell rectangle for use in dropdown validations.
func (c *Client) AddNamedRange(ctx context.Context, doc, name, tab string, startRow, endRow, startCol, endCol int64) error {
	sheetID, err := c.ResolveTabID(ctx, doc, tab)
	if err != nil {
		return err
	}
	return c.batchUpdate(ctx, doc, []request{{
		AddNamedRange: &addNamedRangeRequest{NamedRange: namedRange{
			Name: name,
			Range: gridRange{
				SheetID:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
		}},
	}})
}

func equalHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// --- wire types -------------------------------------------------------------

type request struct {
	AddSheet        *addSheetRequest        `json:"addSheet,omitempty"`
	UpdateCells     *updateCellsRequest     `json:"updateCells,omitempty"`
	DeleteSheet     *deleteSheetRequest     `json:"deleteSheet,omitempty"`
	DeleteDimension *deleteDimensionRequest `json:"deleteDimension,omitempty"`
	AddNamedRange   *addNamedRangeRequest   `json:"addNamedRange,omitempty"`
}

type sheetProperties struct {
	Title string `json:"title"`
	Index *int64 `json:"index,omitempty"`
}

type addSheetRequest struct {
	Properties sheetProperties `json:"properties"`
}

type deleteSheetRequest struct {
	SheetID int64 `json:"sheetId"`
}

type dimensionRange struct {
	SheetID    int64  `json:"sheetId"`
	Dimension  string `json:"dimension"`
	StartIndex int64  `json:"startIndex"`
	EndIndex   int64  `json:"endIndex"`
}

type deleteDimensionRequest struct {
	Range dimensionRange `json:"range"`
}

type gridRange struct {
	SheetID          int64 `json:"sheetId"`
	StartRowIndex    int64 `json:"startRowIndex"`
	EndRowIndex      int64 `json:"endRowIndex"`
	StartColumnIndex int64 `json:"startColumnIndex"`
	EndColumnIndex   int64 `json:"endColumnIndex"`
}

type namedRange struct {
	Name  string    `json:"name"`
	Range gridRange `json:"range"`
}

type addNamedRangeRequest struct {
	NamedRange namedRange `json:"namedRange"`
}

type gridCoordinate struct {
	SheetID     int64 `json:"sheetId"`
	RowIndex    int64 `json:"rowIndex"`
	ColumnIndex int64 `json:"columnIndex"`
}

type extendedValue struct {
	StringValue *string  `json:"stringValue,omitempty"`
	NumberValue *float64 `json:"numberValue,omitempty"`
}

type textFormat struct {
	FontFamily string `json:"fontFamily"`
	FontSize   int    `json:"fontSize"`
	Bold       bool   `json:"bold"`
}

type cellFormat struct {
	TextFormat textFormat `json:"textFormat"`
}

type cellData struct {
	UserEnteredValue  extendedValue `json:"userEnteredValue"`
	UserEnteredFormat cellFormat    `json:"userEnteredFormat"`
}

type rowData struct {
	Values []cellData `json:"values"`
}

type updateCellsRequest struct {
	Start  gridCoordinate `json:"start"`
	Rows   []rowData      `json:"rows"`
	Fields string         `json:"fields"`
}

func updateCells(sheetID, rowIndex int64, cells []Cell, bold bool) request {
	values := make([]cellData, len(cells))
	for i, c := range cells {
		var v extendedValue
		if c.Numeric {
			n := c.Number
			v.NumberValue = &n
		} else {
			s := c.Text
			v.StringValue = &s
		}
		values[i] = cellData{
			UserEnteredValue: v,
			UserEnteredFormat: cellFormat{TextFormat: textFormat{
				FontFamily: cellFont,
				FontSize:   cellFontSize,
				Bold:       bold,
			}},
		}
	}
	return request{UpdateCells: &updateCellsRequest{
		Start:  gridCoordinate{SheetID: sheetID, RowIndex: rowIndex},
		Rows:   []rowData{{Values: values}},
		Fields: "userEnteredValue,userEnteredFormat",
	}}
}

// --- transport --------------------------------------------------------------

func (c *Client) batchUpdate(ctx context.Context, doc string, reqs []request) error {
	body := struct {
		Requests []request `json:"requests"`
	}{Requests: reqs}
	return c.post(ctx, "/v4/spreadsheets/"+doc+":batchUpdate", body, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errs.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
