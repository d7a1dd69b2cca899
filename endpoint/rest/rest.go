/*
 * Copyright 2024 The OpenLEGO Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package rest serves configured disciplines over HTTP. It is the server
// counterpart of the restCall discipline: templates are fetched with GET,
// execute and linearize exchange raw XML documents with POST, and a
// websocket route answers each input XML message with log frames followed
// by the output XML frame.
package rest

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/robfig/cron/v3"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/utils/fs"
	"github.com/openlego/openlego/utils/json"
)

const (
	ContentTypeKey = "Content-Type"
	XmlContentType = "application/xml"

	// route patterns
	BasePath           = "/api/v1/disciplines"
	DisciplinePath     = BasePath + "/:name"
	InputTemplatePath  = DisciplinePath + "/input"
	OutputTemplatePath = DisciplinePath + "/output"
	PartialsPath       = DisciplinePath + "/partials"
	ExecutePath        = DisciplinePath + "/execute"
	LinearizePath      = DisciplinePath + "/linearize"
	WsPath             = DisciplinePath + "/ws"
)

// Config rest server configuration
type Config struct {
	// Addr listen address, e.g. :9090
	Addr string `yaml:"addr"`
	// CertFile and CertKeyFile enable TLS when both are set
	CertFile    string `yaml:"certFile"`
	CertKeyFile string `yaml:"certKeyFile"`
	// DataFolder folder for exchange files, defaults to the OS temp dir
	DataFolder string `yaml:"dataFolder"`
	// SweepCron cron expression for sweeping stale exchange files.
	// Empty disables the sweeper.
	SweepCron string `yaml:"sweepCron"`
	// SweepMaxAgeMs exchange files older than this are removed by the
	// sweeper, defaults to 1 hour
	SweepMaxAgeMs int `yaml:"sweepMaxAgeMs"`
}

// DisciplineServer exposes initialized disciplines over HTTP
type DisciplineServer struct {
	Config Config
	config types.Config

	router   *httprouter.Router
	server   *http.Server
	cron     *cron.Cron
	upgrader websocket.Upgrader

	sync.RWMutex
	// initialized disciplines, keyed by name
	disciplines map[string]types.Discipline
}

// New creates a discipline server
func New(config Config, opts ...types.Option) *DisciplineServer {
	if config.DataFolder == "" {
		config.DataFolder = os.TempDir()
	}
	if config.SweepMaxAgeMs <= 0 {
		config.SweepMaxAgeMs = 3600000
	}
	s := &DisciplineServer{
		Config:      config,
		config:      types.NewConfig(opts...),
		disciplines: make(map[string]types.Discipline),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	s.initRouter()
	return s
}

// AddDiscipline publishes an initialized discipline under name
func (s *DisciplineServer) AddDiscipline(name string, discipline types.Discipline) {
	s.Lock()
	defer s.Unlock()
	s.disciplines[name] = discipline
}

// RemoveDiscipline unpublishes a discipline and destroys it
func (s *DisciplineServer) RemoveDiscipline(name string) {
	s.Lock()
	defer s.Unlock()
	if discipline, ok := s.disciplines[name]; ok {
		discipline.Destroy()
		delete(s.disciplines, name)
	}
}

func (s *DisciplineServer) getDiscipline(name string) (types.Discipline, bool) {
	s.RLock()
	defer s.RUnlock()
	discipline, ok := s.disciplines[name]
	return discipline, ok
}

// Start starts the server and blocks until it stops
func (s *DisciplineServer) Start() error {
	if s.Config.SweepCron != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.Config.SweepCron, s.sweep); err != nil {
			return err
		}
		s.cron.Start()
	}
	s.server = &http.Server{Addr: s.Config.Addr, Handler: s.router}
	var err error
	if s.Config.CertKeyFile != "" && s.Config.CertFile != "" {
		s.config.Logger.Printf("starting discipline server with TLS on %s", s.Config.Addr)
		err = s.server.ListenAndServeTLS(s.Config.CertFile, s.Config.CertKeyFile)
	} else {
		s.config.Logger.Printf("starting discipline server on %s", s.Config.Addr)
		err = s.server.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the server and destroys all published disciplines
func (s *DisciplineServer) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.server != nil {
		_ = s.server.Close()
	}
	s.Lock()
	defer s.Unlock()
	for name, discipline := range s.disciplines {
		discipline.Destroy()
		delete(s.disciplines, name)
	}
}

// Router returns the underlying router, for tests and embedding
func (s *DisciplineServer) Router() *httprouter.Router {
	return s.router
}

func (s *DisciplineServer) initRouter() {
	s.router = httprouter.New()
	s.router.GET(BasePath, s.wrap(s.listHandler))
	s.router.GET(InputTemplatePath, s.wrap(s.templateHandler(types.Discipline.GenerateInputXML)))
	s.router.GET(OutputTemplatePath, s.wrap(s.templateHandler(types.Discipline.GenerateOutputXML)))
	s.router.GET(PartialsPath, s.wrap(s.templateHandler(types.Discipline.GeneratePartialsXML)))
	s.router.POST(ExecutePath, s.wrap(s.execHandler(types.Discipline.Execute, "_exec_")))
	s.router.POST(LinearizePath, s.wrap(s.execHandler(types.Discipline.Linearize, "_lin_")))
	s.router.GET(WsPath, s.wrap(s.wsHandler))
}

func (s *DisciplineServer) wrap(handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		defer func() {
			if e := recover(); e != nil {
				s.config.Logger.Printf("rest handler err :%v", e)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		handle(w, r, params)
	}
}

func (s *DisciplineServer) listHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.RLock()
	names := make([]string, 0, len(s.disciplines))
	disciplineTypes := make(map[string]string, len(s.disciplines))
	for name, discipline := range s.disciplines {
		names = append(names, name)
		disciplineTypes[name] = discipline.Type()
	}
	s.RUnlock()
	sort.Strings(names)

	type item struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	// an empty list marshals to [], not null
	items := []item{}
	for _, name := range names {
		items = append(items, item{Name: name, Type: disciplineTypes[name]})
	}
	body, err := json.Marshal(items)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(ContentTypeKey, "application/json")
	_, _ = w.Write(body)
}

func (s *DisciplineServer) templateHandler(generate func(types.Discipline) ([]byte, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		discipline, ok := s.getDiscipline(params.ByName("name"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		body, err := generate(discipline)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set(ContentTypeKey, XmlContentType)
		_, _ = w.Write(body)
	}
}

func (s *DisciplineServer) execHandler(run func(types.Discipline, string, string) error, tag string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		name := params.ByName("name")
		discipline, ok := s.getDiscipline(name)
		if !ok {
			http.NotFound(w, r)
			return
		}
		input, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := s.runExchange(discipline, run, name, tag, input)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set(ContentTypeKey, XmlContentType)
		_, _ = w.Write(result)
	}
}

// runExchange writes the input XML to a salted file, invokes the discipline
// and reads the produced file back. Exchange files are removed best-effort.
func (s *DisciplineServer) runExchange(discipline types.Discipline, run func(types.Discipline, string, string) error, name, tag string, input []byte) ([]byte, error) {
	salt := uuid.Must(uuid.NewV4()).String()
	inFile := filepath.Join(s.Config.DataFolder, name+tag+"in_"+salt+".xml")
	outFile := filepath.Join(s.Config.DataFolder, name+tag+"out_"+salt+".xml")
	if err := fs.SaveFile(inFile, input); err != nil {
		return nil, err
	}
	defer func() {
		_ = os.Remove(inFile)
		_ = os.Remove(outFile)
	}()
	if err := run(discipline, inFile, outFile); err != nil {
		return nil, err
	}
	result, err := os.ReadFile(outFile)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WsLogPrefix marks websocket log frames; the frame without it is the
// output XML document.
const WsLogPrefix = "log:"

// wsLogger forwards log lines to the peer as prefixed text frames and to
// the server logger.
type wsLogger struct {
	conn   *websocket.Conn
	logger types.Logger
}

func (l *wsLogger) Printf(format string, v ...interface{}) {
	l.logger.Printf(format, v...)
	_ = l.conn.WriteMessage(websocket.TextMessage, []byte(WsLogPrefix+fmt.Sprintf(format, v...)))
}

// wsHandler upgrades to a websocket and runs one execute per text message,
// streaming log frames before the output XML frame
func (s *DisciplineServer) wsHandler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	name := params.ByName("name")
	discipline, ok := s.getDiscipline(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Logger.Printf("ws upgrade err :%v", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()
	logger := &wsLogger{conn: conn, logger: s.config.Logger}
	for {
		messageType, input, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		logger.Printf("executing %s", name)
		start := time.Now()
		result, err := s.runExchange(discipline, types.Discipline.Execute, name, "_ws_", input)
		if err != nil {
			logger.Printf("execute %s err :%v", name, err)
			if writeErr := conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
				time.Now().Add(time.Second)); writeErr != nil {
				return
			}
			return
		}
		logger.Printf("executed %s in %v", name, time.Since(start))
		if err = conn.WriteMessage(websocket.TextMessage, result); err != nil {
			return
		}
	}
}

// sweep removes stale exchange files from the data folder
func (s *DisciplineServer) sweep() {
	maxAge := time.Duration(s.Config.SweepMaxAgeMs) * time.Millisecond
	paths, err := fs.GetFilePaths(filepath.Join(s.Config.DataFolder, "*.xml"))
	if err != nil {
		s.config.Logger.Printf("sweep data folder err :%v", err)
		return
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > maxAge {
			if err = os.Remove(path); err != nil {
				log.Printf("sweep remove %s err :%v", path, err)
			}
		}
	}
}
