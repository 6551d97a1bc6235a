package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/mirkobrombin/dnsforge/internal/config"
	"github.com/mirkobrombin/dnsforge/internal/dnsmasq"
	"github.com/mirkobrombin/dnsforge/internal/sysinfo"
)

const maxBodyBytes = 64 * 1024

func (s *Server) loadConfig(w http.ResponseWriter) (*config.Config, bool) {
	conf, err := config.Load(s.ConfigFile)
	if err != nil {
		s.Logger.Errorf("Cannot load %s: %v", s.ConfigFile, err)
		jsonError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return conf, true
}

func (s *Server) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	conf, ok := s.loadConfig(w)
	if !ok {
		return
	}
	jsonResponse(w, conf)
}

func (s *Server) getConfigKeyHandler(w http.ResponseWriter, r *http.Request) {
	conf, ok := s.loadConfig(w)
	if !ok {
		return
	}
	raw, err := config.GetKey(conf, mux.Vars(r)["key"])
	if err != nil {
		jsonError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, raw)
}

func (s *Server) setConfigKeyHandler(w http.ResponseWriter, r *http.Request) {
	s.editConfigKey(w, r, config.SetKey)
}

func (s *Server) appendConfigKeyHandler(w http.ResponseWriter, r *http.Request) {
	s.editConfigKey(w, r, config.AppendKey)
}

func (s *Server) editConfigKey(w http.ResponseWriter, r *http.Request, edit func(*config.Config, string, string) (*config.Config, error)) {
	key := mux.Vars(r)["key"]
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := config.ModifyFile(s.ConfigFile, func(conf *config.Config) (*config.Config, error) {
		return edit(conf, key, string(body))
	})
	if err != nil {
		jsonError(w, http.StatusBadRequest, err)
		return
	}
	raw, _ := config.GetKey(updated, key)
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, raw)
}

func (s *Server) renderHandler(w http.ResponseWriter, r *http.Request) {
	conf, ok := s.loadConfig(w)
	if !ok {
		return
	}
	out, err := s.Installer.Renderer.Bytes(conf)
	if err != nil {
		s.pipelineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(out)
}

func (s *Server) testHandler(w http.ResponseWriter, r *http.Request) {
	conf, ok := s.loadConfig(w)
	if !ok {
		return
	}
	// A client disconnect must not kill the resolver test half-way.
	ctx := context.WithoutCancel(r.Context())
	if err := s.Installer.Test(ctx, conf); err != nil {
		s.pipelineError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"status": "valid"})
}

func (s *Server) installHandler(w http.ResponseWriter, r *http.Request) {
	test := s.Test
	if v := r.URL.Query().Get("test"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}
		test = parsed
	}

	conf, ok := s.loadConfig(w)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	if err := s.Installer.Install(ctx, conf, test); err != nil {
		s.pipelineError(w, err)
		return
	}
	s.Logger.Infof("[API] Installed %s (tested: %v)", s.Installer.Renderer.Paths.LiveConf, test)
	jsonResponse(w, map[string]any{"status": "installed", "tested": test})
}

// pipelineError maps a rejected config or model to 400 and anything else
// to 500.
func (s *Server) pipelineError(w http.ResponseWriter, err error) {
	if errors.Is(err, config.ErrMultiline) {
		jsonError(w, http.StatusBadRequest, err)
		return
	}
	var verr *dnsmasq.ValidationError
	if !errors.As(err, &verr) {
		jsonError(w, http.StatusInternalServerError, err)
		return
	}
	body := map[string]any{
		"error":      verr.Error(),
		"diagnostic": verr.Outcome.Diagnostic,
		"exit_code":  verr.Outcome.ExitCode,
		"crashed":    verr.Outcome.Crashed,
	}
	if verr.Outcome.Crashed {
		body["signal"] = int(verr.Outcome.Signal)
		body["core_dumped"] = verr.Outcome.CoreDumped
	}
	if verr.Line > 0 {
		body["line"] = verr.Line
		body["line_text"] = verr.LineText
	}
	jsonStatus(w, http.StatusBadRequest, body)
}

func (s *Server) lineHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, err)
		return
	}
	text, ok := dnsmasq.Line(s.Installer.Renderer.Paths.StagedConf, n)
	if !ok {
		http.Error(w, "Line not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]any{"line": n, "text": text})
}

func (s *Server) importLegacyHandler(w http.ResponseWriter, r *http.Request) {
	var imported int
	var importErr error
	_, err := config.ModifyFile(s.ConfigFile, func(conf *config.Config) (*config.Config, error) {
		imported, importErr = dnsmasq.ImportLegacy(conf, s.Installer.Renderer.Paths, s.Logger)
		return conf, nil
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err)
		return
	}
	if importErr != nil {
		jsonStatus(w, http.StatusInternalServerError, map[string]any{
			"error":    importErr.Error(),
			"imported": imported,
		})
		return
	}
	jsonResponse(w, map[string]any{"imported": imported})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"uptime":   time.Since(s.startTime).String(),
		"apiAlive": true,
	}
	if host, err := sysinfo.HostInfo(); err == nil {
		status["host"] = host
	}
	live := s.Installer.Renderer.Paths.LiveConf
	if info, err := os.Stat(live); err == nil {
		status["live_config"] = map[string]any{
			"path":     live,
			"size":     humanize.Bytes(uint64(info.Size())),
			"modified": humanize.Time(info.ModTime()),
		}
	}
	jsonResponse(w, status)
}
