package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gsi/geometry"
	"gsi/index"
	"gsi/util"
)

// One router for the whole package, the metrics collectors register globally.
func testRouter(t *testing.T) http.Handler {
	wkts := []string{
		"POINT(3 4)",
		"LINESTRING(3 4,4 4,4 5,3 5)",
		"POLYGON((3 4,4 4,4 5,3 5,3 4))",
	}
	var values [][]byte
	for _, s := range wkts {
		g, err := geometry.FromWKT(s)
		util.AssertNil(t, err)
		values = append(values, g.WKB())
	}

	idx, err := index.NewGeoH3Index(nil, index.DefaultResolution)
	util.AssertNil(t, err)
	util.AssertNil(t, idx.Build(values))
	return initRouter(idx)
}

func TestApi(t *testing.T) {
	router := testRouter(t)

	t.Run("query matches the equal point", func(t *testing.T) {
		body := `{"wkt": "POINT(3 4)", "op": "equals"}`
		request := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, request)

		util.AssertEqual(t, http.StatusOK, recorder.Code)
		var response queryResponse
		util.AssertNil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		util.AssertEqual(t, uint64(1), response.Count)
		util.AssertEqual(t, []uint32{0}, response.Offsets)
		util.AssertEqual(t, []string{"POINT(3 4)"}, response.Wkt)
	})

	t.Run("query with unknown predicate", func(t *testing.T) {
		body := `{"wkt": "POINT(3 4)", "op": "nearest"}`
		request := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, request)

		util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("query with invalid geometry", func(t *testing.T) {
		body := `{"wkt": "POINT(zzz)", "op": "equals"}`
		request := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, request)

		util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("stats", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/stats", nil)
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, request)

		util.AssertEqual(t, http.StatusOK, recorder.Code)
		var response statsResponse
		util.AssertNil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		util.AssertEqual(t, int64(3), response.NumRows)
		util.AssertEqual(t, index.DefaultResolution, response.Resolution)
	})

	t.Run("metrics", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, request)

		util.AssertEqual(t, http.StatusOK, recorder.Code)
		util.AssertTrue(t, strings.Contains(recorder.Body.String(), "gsi_indexed_rows"))
	})
}
