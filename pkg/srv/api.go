/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// tagdump API
//
// RESTful API to decode dblk streams and panic files
//
// Schemes: http
// Host: localhost:8003
// Version: 1.0.0
//
//	Consumes:
//	- application/octet-stream
//
//	Produces:
//	- application/json
//
// swagger:meta
package srv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mammark/go-tagcore/pkg/config"
	"github.com/mammark/go-tagcore/pkg/log"
	"github.com/mammark/go-tagcore/pkg/pix"
	"github.com/mammark/go-tagcore/pkg/store"
	"github.com/mammark/go-tagcore/pkg/stream"
)

const (
	// MaxUploadBytes bounds the size of a posted stream or panic file
	MaxUploadBytes = 256 << 20
)

// DecodeResult is the response of POST /api/decode
type DecodeResult struct {
	Source    string            `json:"source,omitempty"`
	Summaries []*stream.Summary `json:"summaries"`
	Stats     *stream.Stats     `json:"stats"`
	// Stopped is set when the walk could not reach the end of the data
	Stopped *stream.Anomaly `json:"stopped,omitempty"`
}

// Decode walks data from offset and collects the summaries
func Decode(data []byte, offset int, skipChecksums bool) *DecodeResult {
	d := stream.NewDecoder(data, offset, stream.SkipChecksums(skipChecksums))
	result := &DecodeResult{Summaries: []*stream.Summary{}}
	err := d.Walk(func(r *stream.Record) error {
		result.Summaries = append(result.Summaries, r.Summary())
		return nil
	})
	var stopped *stream.ErrStopped
	if errors.As(err, &stopped) {
		result.Stopped = &stopped.Anomaly
	}
	result.Stats = d.Stats()
	return result
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	state *store.State
}

// NewApiServer creates the server, state may be nil when records are not stored
func NewApiServer(ctx context.Context, cfg *config.Config, state *store.State) *ApiServer {
	log.Info("Initializing API server with address: %s", cfg.ApiAddr())
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		state:   state,
	}
	s.configureRouter()
	return s
}

// Handler is the router with request logging
func (s *ApiServer) Handler() http.Handler {
	return handlers.LoggingHandler(log.Writer(), s.Router)
}

// Run serves until the context is done
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s", s.Config.ApiAddr())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.ApiAddr(),
	}
	go func() {
		<-s.Context.Done()
		log.Info("Stopping API server")
		httpServer.Close()
	}()
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation POST /decode decode
	// ---
	// summary: decode a dblk stream posted as the request body
	// parameters:
	// - name: source
	//   in: query
	//   description: store the summaries under this source name
	// - name: offset
	//   in: query
	// - name: skip_checksums
	//   in: query
	subRouter.HandleFunc("/decode", s.handleDecode()).Methods("POST")
	// swagger:operation POST /panic panic
	// ---
	// summary: scan a panic file posted as the request body
	subRouter.HandleFunc("/panic", s.handlePanic()).Methods("POST")
	subRouter.HandleFunc("/sources", s.handleSources()).Methods("GET")
	subRouter.HandleFunc("/sources/{name}/records", s.handleRecords()).Methods("GET")
	subRouter.HandleFunc("/sources/{name}/stats", s.handleStats()).Methods("GET")
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return ioutil.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleDecode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		source := query.Get("source")
		log.Debug("Handling decode request: source: %s", source)

		offset := 0
		if v := query.Get("offset"); v != "" {
			o, err := strconv.ParseUint(v, 0, 32)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			offset = int(o)
		}
		skip := s.Config.Decode.SkipChecksums
		if v := query.Get("skip_checksums"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			skip = b
		}

		data, err := readBody(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := Decode(data, offset, skip)
		result.Source = source

		if source != "" {
			if s.state == nil {
				http.Error(w, "Record store is not enabled", http.StatusConflict)
				return
			}
			if err := s.persist(source, result); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, result)
	}
}

func (s *ApiServer) persist(source string, result *DecodeResult) error {
	if err := s.state.CreateBucket(source); err != nil {
		return err
	}
	if err := s.state.PutSummaries(source, result.Summaries); err != nil {
		return err
	}
	return s.state.PutStats(source, result.Stats)
}

func (s *ApiServer) handlePanic() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling panic scan request")
		data, err := readBody(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		report, err := pix.Scan(data, pix.Options{
			BaseOffset:  s.Config.Panic.BaseOffset,
			BlockStride: s.Config.Panic.BlockStride,
		})
		if err != nil {
			http.Error(w, fmt.Sprintf("Panic scan aborted: %s", err), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, report)
	}
}

func (s *ApiServer) requireState(w http.ResponseWriter) bool {
	if s.state == nil {
		http.Error(w, "Record store is not enabled", http.StatusNotFound)
		return false
	}
	return true
}

func storeStatus(err error) int {
	var nf store.ErrSourceNotFound
	if errors.As(err, &nf) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *ApiServer) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireState(w) {
			return
		}
		sources, err := s.state.Sources()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, sources)
	}
}

func (s *ApiServer) handleRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling records request: source: %s", vars["name"])
		if !s.requireState(w) {
			return
		}
		summaries, err := s.state.GetSummaries(vars["name"])
		if err != nil {
			http.Error(w, err.Error(), storeStatus(err))
			return
		}
		writeJSON(w, summaries)
	}
}

func (s *ApiServer) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling stats request: source: %s", vars["name"])
		if !s.requireState(w) {
			return
		}
		stats, err := s.state.GetStats(vars["name"])
		if err != nil {
			http.Error(w, err.Error(), storeStatus(err))
			return
		}
		writeJSON(w, stats)
	}
}
