package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/analysis"
	"github.com/spigell/cv-screener/internal/candidates"
	"github.com/spigell/cv-screener/internal/export"
	"github.com/spigell/cv-screener/internal/screening"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Detail string `json:"detail"`
}

type savedResponse struct {
	Status  string `json:"status"`
	Message string `json:"mensagem"`
}

type startedResponse struct {
	analysis.StartInfo
	Message string `json:"mensagem"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) getJobSpec(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.LoadJobSpec(r.Context())
	if err != nil {
		s.logger.Error("loading job spec", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao carregar a vaga.")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) postJobSpec(w http.ResponseWriter, r *http.Request) {
	var job screening.JobSpec
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("JSON inválido: %v", err))
		return
	}

	if err := s.store.SaveJobSpec(r.Context(), job); err != nil {
		s.logger.Error("saving job spec", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao salvar a vaga.")
		return
	}

	s.logger.Info("job spec saved", zap.String("job", job.Title))
	writeJSON(w, http.StatusOK, savedResponse{Status: "sucesso", Message: "Vaga salva!"})
}

func (s *Server) postAnalyze(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.LoadJobSpec(r.Context())
	if err != nil {
		s.logger.Error("loading job spec", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao carregar a vaga.")
		return
	}
	if job.Validate() != nil {
		writeError(w, http.StatusBadRequest, "Vaga não cadastrada. Salve uma vaga primeiro.")
		return
	}

	set, err := s.candidates.Load()
	if err != nil {
		s.logger.Warn("loading candidates", zap.Error(err))
		if errors.Is(err, candidates.ErrNotFound) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Arquivo '%s' não encontrado.", candidateFile(s.candidates)))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Arquivo de candidatos inválido: %v", err))
		return
	}

	info, err := s.analyzer.Start(job, set)
	switch {
	case errors.Is(err, analysis.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "Já existe uma análise em andamento.")
		return
	case errors.Is(err, analysis.ErrNoJobSpec):
		writeError(w, http.StatusBadRequest, "Vaga não cadastrada. Salve uma vaga primeiro.")
		return
	case errors.Is(err, analysis.ErrNoCandidates):
		writeError(w, http.StatusBadRequest, "Nenhum candidato carregado.")
		return
	case err != nil:
		s.logger.Error("starting analysis", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao iniciar a análise.")
		return
	}

	s.logger.Info("analysis requested", zap.String("run_id", info.RunID), zap.Int("count", info.Count))
	writeJSON(w, http.StatusAccepted, startedResponse{
		StartInfo: info,
		Message:   fmt.Sprintf("Análise de %d candidatos iniciada em background.", info.Count),
	})
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.LoadResults(r.Context())
	if err != nil {
		s.logger.Error("loading results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao carregar os resultados.")
		return
	}
	if results == nil {
		results = screening.ResultSet{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) getResultsXLSX(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.LoadResults(r.Context())
	if err != nil {
		s.logger.Error("loading results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao carregar os resultados.")
		return
	}
	job, err := s.store.LoadJobSpec(r.Context())
	if err != nil {
		s.logger.Warn("loading job spec for export", zap.Error(err))
		job = screening.JobSpec{}
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, results, job); err != nil {
		s.logger.Error("exporting results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao exportar os resultados.")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="resultados.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.Progress())
}

func candidateFile(src candidates.Source) string {
	if f, ok := src.(*candidates.File); ok {
		return f.Path
	}
	return candidates.DefaultFile
}
