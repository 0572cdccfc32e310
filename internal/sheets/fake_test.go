package sheets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shutterdesk/shutterdesk/internal/sheets"
)

// fakeService is an in-memory stand-in for the spreadsheet API, implementing
// the metadata GET, values GET, and the batchUpdate request types the client
// relies on.
type fakeService struct {
	mu          sync.Mutex
	nextID      int64
	tabs        []*fakeTab
	namedRanges []string
	srv         *httptest.Server
}

type fakeTab struct {
	id    int64
	title string
	rows  [][]string
}

func newFakeService(t *testing.T) (*fakeService, *sheets.Client) {
	t.Helper()
	f := &fakeService{nextID: 1000}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)

	client := sheets.NewClient(sheets.Options{
		BaseURL: f.srv.URL,
		Token:   func(context.Context) (string, error) { return "test-token", nil },
	})
	return f, client
}

func (f *fakeService) tabByTitle(title string) *fakeTab {
	for _, tab := range f.tabs {
		if tab.title == title {
			return tab
		}
	}
	return nil
}

func (f *fakeService) tabByID(id int64) *fakeTab {
	for _, tab := range f.tabs {
		if tab.id == id {
			return tab
		}
	}
	return nil
}

// rows returns a copy of a tab's rows for assertions.
func (f *fakeService) rowsOf(title string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tab := f.tabByTitle(title)
	if tab == nil {
		return nil
	}
	out := make([][]string, len(tab.rows))
	for i, r := range tab.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (f *fakeService) tabTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.tabs))
	for i, tab := range f.tabs {
		out[i] = tab.title
	}
	return out
}

// setCell overwrites one cell directly, simulating manual edits.
func (f *fakeService) setCell(title string, row, col int, v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabByTitle(title).rows[row][col] = v
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.handleBatchUpdate(w, r)
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		// r.URL.Path arrives already unescaped.
		parts := strings.SplitN(path, "/values/", 2)
		tab := f.tabByTitle(parts[1])
		if tab == nil {
			http.Error(w, `{"error":{"code":404,"status":"NOT_FOUND"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": tab.rows})
	case r.Method == http.MethodGet:
		type props struct {
			Title   string `json:"title"`
			SheetID int64  `json:"sheetId"`
		}
		type sheet struct {
			Properties props `json:"properties"`
		}
		out := struct {
			Sheets []sheet `json:"sheets"`
		}{}
		for _, tab := range f.tabs {
			out.Sheets = append(out.Sheets, sheet{Properties: props{Title: tab.title, SheetID: tab.id}})
		}
		_ = json.NewEncoder(w).Encode(out)
	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

type fakeBatchRequest struct {
	AddSheet *struct {
		Properties struct {
			Title string `json:"title"`
			Index *int64 `json:"index"`
		} `json:"properties"`
	} `json:"addSheet"`
	UpdateCells *struct {
		Start struct {
			SheetID     int64 `json:"sheetId"`
			RowIndex    int64 `json:"rowIndex"`
			ColumnIndex int64 `json:"columnIndex"`
		} `json:"start"`
		Rows []struct {
			Values []struct {
				UserEnteredValue struct {
					StringValue *string  `json:"stringValue"`
					NumberValue *float64 `json:"numberValue"`
				} `json:"userEnteredValue"`
			} `json:"values"`
		} `json:"rows"`
	} `json:"updateCells"`
	DeleteSheet *struct {
		SheetID int64 `json:"sheetId"`
	} `json:"deleteSheet"`
	DeleteDimension *struct {
		Range struct {
			SheetID    int64  `json:"sheetId"`
			Dimension  string `json:"dimension"`
			StartIndex int64  `json:"startIndex"`
			EndIndex   int64  `json:"endIndex"`
		} `json:"range"`
	} `json:"deleteDimension"`
	AddNamedRange *struct {
		NamedRange struct {
			Name string `json:"name"`
		} `json:"namedRange"`
	} `json:"addNamedRange"`
}

func (f *fakeService) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []fakeBatchRequest `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, req := range body.Requests {
		switch {
		case req.AddSheet != nil:
			tab := &fakeTab{id: f.nextID, title: req.AddSheet.Properties.Title}
			f.nextID++
			if idx := req.AddSheet.Properties.Index; idx != nil && int(*idx) <= len(f.tabs) {
				i := int(*idx)
				f.tabs = append(f.tabs[:i], append([]*fakeTab{tab}, f.tabs[i:]...)...)
			} else {
				f.tabs = append(f.tabs, tab)
			}
		case req.UpdateCells != nil:
			tab := f.tabByID(req.UpdateCells.Start.SheetID)
			if tab == nil {
				http.Error(w, "no such sheet", http.StatusBadRequest)
				return
			}
			rowIdx := int(req.UpdateCells.Start.RowIndex)
			colIdx := int(req.UpdateCells.Start.ColumnIndex)
			for i, rd := range req.UpdateCells.Rows {
				for len(tab.rows) <= rowIdx+i {
					tab.rows = append(tab.rows, nil)
				}
				row := tab.rows[rowIdx+i]
				for j, cell := range rd.Values {
					for len(row) <= colIdx+j {
						row = append(row, "")
					}
					switch {
					case cell.UserEnteredValue.NumberValue != nil:
						row[colIdx+j] = strconv.FormatFloat(*cell.UserEnteredValue.NumberValue, 'f', -1, 64)
					case cell.UserEnteredValue.StringValue != nil:
						row[colIdx+j] = *cell.UserEnteredValue.StringValue
					}
				}
				tab.rows[rowIdx+i] = row
			}
		case req.DeleteSheet != nil:
			for i, tab := range f.tabs {
				if tab.id == req.DeleteSheet.SheetID {
					f.tabs = append(f.tabs[:i], f.tabs[i+1:]...)
					break
				}
			}
		case req.DeleteDimension != nil:
			tab := f.tabByID(req.DeleteDimension.Range.SheetID)
			if tab == nil {
				http.Error(w, "no such sheet", http.StatusBadRequest)
				return
			}
			start := int(req.DeleteDimension.Range.StartIndex)
			end := int(req.DeleteDimension.Range.EndIndex)
			if start < len(tab.rows) {
				if end > len(tab.rows) {
					end = len(tab.rows)
				}
				tab.rows = append(tab.rows[:start], tab.rows[end:]...)
			}
		case req.AddNamedRange != nil:
			f.namedRanges = append(f.namedRanges, req.AddNamedRange.NamedRange.Name)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"replies": []any{}})
}
