package accessitems_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/BerndBr/taskana/internal/accessitems"
	"github.com/BerndBr/taskana/pkg/pagination"
	"github.com/BerndBr/taskana/pkg/routes"
)

var columns = []string{
	"id", "workbasket_id", "workbasket_key", "access_id", "access_name",
	"perm_read", "perm_open", "perm_append", "perm_transfer", "perm_distribute",
}

func newSystem(t *testing.T) (accessitems.System, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return accessitems.New(db, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}), mock
}

func serve(sys accessitems.System, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestIsGroup(t *testing.T) {
	tests := []struct {
		accessID string
		want     bool
	}{
		{"user_1_1", false},
		{"cn=DevelopersGroup,ou=groups,o=TaskanaTest", true},
		{"CN=Admins,OU=Groups,O=Taskana", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := accessitems.IsGroup(tt.accessID); got != tt.want {
			t.Errorf("IsGroup(%q) = %v, want %v", tt.accessID, got, tt.want)
		}
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"empty", "", ""},
		{"known parameters", "sort-by=workbasket-key&order=asc&page=1&page-size=9&access-id=user_1_1", ""},
		{"legacy access-ids", "access-ids=user_1_1&workbasket-key=GPK_KSC", ""},
		{"unknown parameter", "sort-by=workbasket-key&invalid=user_1_1", "[invalid]"},
		{"unknown parameters sorted", "zeta=1&alpha=2", "[alpha zeta]"},
		{"unknown sort-by", "sort-by=name", "sort-by"},
		{"sort by parameter and view names", "sort=-workbasket-key,AccessID&order=DESC", ""},
		{"unknown sort field", "sort=-name", "sort field"},
		{"unknown order", "sort-by=access-id&order=sideways", "asc or desc"},
		{"blank order", "sort-by=access-id&order=", "asc or desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			err := accessitems.ValidateQuery(values)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateQuery() error = %v", err)
				}
				return
			}
			if !errors.Is(err, accessitems.ErrInvalidParams) {
				t.Fatalf("ValidateQuery() error = %v, want ErrInvalidParams", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	values, _ := url.ParseQuery("access-id=a&access-id=b&access-ids=c&workbasket-key=W1&workbasket-key=")
	f := accessitems.FiltersFromQuery(values)

	if len(f.AccessIDs) != 3 || f.AccessIDs[2] != "c" {
		t.Errorf("AccessIDs = %v, want [a b c]", f.AccessIDs)
	}
	if len(f.WorkbasketKeys) != 1 || f.WorkbasketKeys[0] != "W1" {
		t.Errorf("WorkbasketKeys = %v, want [W1]", f.WorkbasketKeys)
	}
}

func TestListSortedByWorkbasketKey(t *testing.T) {
	sys, mock := newSystem(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM public.workbasket_access_items a WHERE a.access_id IN ($1)")).
		WithArgs("user_1_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.access_id IN ($1) ORDER BY a.workbasket_key DESC LIMIT 9 OFFSET 0")).
		WithArgs("user_1_1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("WAI:1", "WBI:1", "USER-1-1", "user_1_1", "Max", true, true, true, false, false))

	rec := serve(sys, "GET", "/workbasket-access-items?sort-by=workbasket-key&order=desc&page-size=9&access-id=user_1_1&page=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"access_id":"user_1_1"`) {
		t.Errorf("body = %s, want access item of user_1_1", rec.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListRejectsUnknownParameters(t *testing.T) {
	sys, mock := newSystem(t)

	rec := serve(sys, "GET", "/workbasket-access-items?sort-by=workbasket-key&order=asc&page=1&page-size=9&invalid=user_1_1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "[invalid]") {
		t.Errorf("body = %s, want it to name [invalid]", rec.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDelete(t *testing.T) {
	sys, mock := newSystem(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM workbasket_access_items WHERE access_id = $1")).
		WithArgs("user_1_1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	rec := serve(sys, "DELETE", "/workbasket-access-items?access-id=user_1_1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteRejections(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing access id", "/workbasket-access-items"},
		{"group access id", "/workbasket-access-items?access-id=" + url.QueryEscape("cn=DevelopersGroup,ou=groups,o=TaskanaTest")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, mock := newSystem(t)
			rec := serve(sys, "DELETE", tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestDeleteStoreFailure(t *testing.T) {
	sys, mock := newSystem(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := sys.DeleteByAccessID(context.Background(), "user_1_1")
	if err == nil {
		t.Fatal("DeleteByAccessID() error = nil, want store error")
	}
	if got := accessitems.MapHTTPStatus(err); got != http.StatusInternalServerError {
		t.Errorf("MapHTTPStatus() = %d, want 500", got)
	}
}
