// Package web serves spatial predicate queries against a built H3 index
// over HTTP.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gsi/geometry"
	"gsi/index"
)

type queryRequest struct {
	Wkt string `json:"wkt"`
	Op  string `json:"op"`
}

type queryResponse struct {
	Count   uint64   `json:"count"`
	Offsets []uint32 `json:"offsets"`
	Wkt     []string `json:"wkt"`
}

type statsResponse struct {
	NumRows     int64 `json:"num_rows"`
	Cardinality int64 `json:"cardinality"`
	Resolution  int   `json:"resolution"`
}

// StartServer serves the query API for the given built index on the given
// port.
func StartServer(port string, idx *index.GeoH3Index) {
	r := initRouter(idx)
	sigolo.Infof("Start server on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func initRouter(idx *index.GeoH3Index) *mux.Router {
	m := newMetrics()
	m.indexedRows.Set(float64(idx.Count()))
	m.indexedCells.Set(float64(idx.Cardinality()))

	r := mux.NewRouter()
	r.HandleFunc("/query", func(writer http.ResponseWriter, request *http.Request) {
		handleQuery(writer, request, idx, m)
	}).Methods(http.MethodPost)
	r.HandleFunc("/stats", func(writer http.ResponseWriter, request *http.Request) {
		writeJson(writer, statsResponse{
			NumRows:     idx.Count(),
			Cardinality: idx.Cardinality(),
			Resolution:  idx.Resolution(),
		})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func handleQuery(writer http.ResponseWriter, request *http.Request, idx *index.GeoH3Index, m *metrics) {
	var req queryRequest
	err := json.NewDecoder(request.Body).Decode(&req)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error parsing query request", err)
		return
	}

	op, err := index.GeoOpFromString(req.Op)
	if err != nil {
		m.queryCounter.WithLabelValues(req.Op, "rejected").Inc()
		writeError(writer, http.StatusBadRequest, "Error parsing predicate", err)
		return
	}
	queryGeometry, err := geometry.FromWKT(req.Wkt)
	if err != nil {
		m.queryCounter.WithLabelValues(op.String(), "rejected").Inc()
		writeError(writer, http.StatusBadRequest, "Error parsing query geometry", err)
		return
	}

	queryStartTime := time.Now()
	bitmap, err := idx.ExecGeoRelations([][]byte{queryGeometry.WKB()}, op)
	if err != nil {
		m.queryCounter.WithLabelValues(op.String(), "error").Inc()
		writeError(writer, http.StatusInternalServerError, "Error executing query", err)
		return
	}
	m.queryDuration.WithLabelValues(op.String()).Observe(time.Since(queryStartTime).Seconds())
	m.queryCounter.WithLabelValues(op.String(), "ok").Inc()

	response := queryResponse{
		Count:   bitmap.TrueCount(),
		Offsets: bitmap.ToSlice(),
	}
	for _, offset := range response.Offsets {
		raw, err := idx.ReverseLookup(offset)
		if err != nil {
			writeError(writer, http.StatusInternalServerError, "Error resolving matched row", err)
			return
		}
		g, err := geometry.FromWKB(raw)
		if err != nil {
			writeError(writer, http.StatusInternalServerError, "Error decoding matched row", err)
			return
		}
		response.Wkt = append(response.Wkt, g.WKT())
	}

	sigolo.Debugf("Query %s %q matched %d rows", op, req.Wkt, response.Count)
	writeJson(writer, response)
}

func writeJson(writer http.ResponseWriter, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(writer).Encode(payload)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func writeError(writer http.ResponseWriter, status int, message string, err error) {
	sigolo.Errorf("%s: %+v", message, err)
	writer.WriteHeader(status)
	_, err = writer.Write([]byte(message))
	if err != nil {
		sigolo.Errorf("Error writing error response: %+v", err)
	}
}
