package preference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/avatar-compressor/internal/repository/preference"
)

type fakeRepo struct {
	targetKB int
	unset    bool
	setCalls []int
}

func (f *fakeRepo) Get(context.Context) (int, error) {
	if f.unset {
		return 0, preference.ErrPreferenceNotSet
	}

	return f.targetKB, nil
}

func (f *fakeRepo) Set(_ context.Context, targetKB int) error {
	f.setCalls = append(f.setCalls, targetKB)
	f.targetKB = targetKB
	f.unset = false

	return nil
}

func newTestRouter(repo *fakeRepo) *ginext.Engine {
	h := NewHandler(repo)

	r := ginext.New()
	r.GET("/preference", h.Get)
	r.PUT("/preference", h.Set)

	return r
}

type preferenceResponse struct {
	Result struct {
		Enabled  bool `json:"enabled"`
		TargetKB int  `json:"target_kb"`
	} `json:"result"`
}

func doPut(t *testing.T, r *ginext.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPut, "/preference", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestSet_RejectsNonPositiveTarget(t *testing.T) {
	for _, targetKB := range []int{0, -5} {
		t.Run(fmt.Sprintf("target %d", targetKB), func(t *testing.T) {
			repo := &fakeRepo{unset: true}
			r := newTestRouter(repo)

			w := doPut(t, r, fmt.Sprintf(`{"target_kb": %d}`, targetKB))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, repo.setCalls)
		})
	}
}

func TestSet_RejectsMalformedBody(t *testing.T) {
	repo := &fakeRepo{unset: true}
	r := newTestRouter(repo)

	w := doPut(t, r, `{"target_kb": "200`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.setCalls)
}

func TestSet_StoresValidTarget(t *testing.T) {
	repo := &fakeRepo{unset: true}
	r := newTestRouter(repo)

	w := doPut(t, r, `{"target_kb": 250}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{250}, repo.setCalls)

	var resp preferenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 250, resp.Result.TargetKB)
}

func TestGet_UnsetPreferenceMeansNoCompression(t *testing.T) {
	r := newTestRouter(&fakeRepo{unset: true})

	req := httptest.NewRequest(http.MethodGet, "/preference", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp preferenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Result.Enabled)
	assert.Equal(t, 0, resp.Result.TargetKB)
}

func TestGet_StoredPreference(t *testing.T) {
	r := newTestRouter(&fakeRepo{targetKB: 150})

	req := httptest.NewRequest(http.MethodGet, "/preference", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp preferenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Enabled)
	assert.Equal(t, 150, resp.Result.TargetKB)
}
