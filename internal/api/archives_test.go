package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/BerndBr/taskana/pkg/routes"
	"github.com/BerndBr/taskana/pkg/storage"
	"github.com/BerndBr/taskana/pkg/storage/mocks"
)

func serveArchives(store storage.System, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	routes.Register(mux, newArchiveHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))).routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestArchiveDownload(t *testing.T) {
	store := mocks.NewMockSystem(gomock.NewController(t))
	store.EXPECT().
		Download(gomock.Any(), "2026/03/14/abc.json").
		Return(io.NopCloser(strings.NewReader(`{"classifications":[]}`)), nil)

	rec := serveArchives(store, "GET", "/import-archives/2026/03/14/abc.json")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"classifications":[]}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="abc.json"`)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
}

func TestArchiveDownloadMissing(t *testing.T) {
	store := mocks.NewMockSystem(gomock.NewController(t))
	store.EXPECT().Download(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	rec := serveArchives(store, "GET", "/import-archives/2026/03/14/none.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveExists(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		err    error
		want   int
	}{
		{"present", true, nil, http.StatusOK},
		{"absent", false, nil, http.StatusNotFound},
		{"invalid key", false, storage.ErrInvalidKey, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockSystem(gomock.NewController(t))
			store.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(tt.exists, tt.err)

			rec := serveArchives(store, "HEAD", "/import-archives/2026/03/14/abc.json")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestArchiveDelete(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"removed", nil, http.StatusNoContent},
		{"missing", storage.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockSystem(gomock.NewController(t))
			store.EXPECT().Delete(gomock.Any(), "2026/03/14/abc.json").Return(tt.err)

			rec := serveArchives(store, "DELETE", "/import-archives/2026/03/14/abc.json")
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, rec.Header().Get("Cache-Control"))
		})
	}
}
