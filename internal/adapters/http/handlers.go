package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/episode"
	"svw.info/playfair/internal/generator"
	"svw.info/playfair/internal/usecase"
)

// Handler exposes episodes to an external learner. Each reset opens a session
// that lives until it is closed.
type Handler struct {
	UC      *usecase.Service
	Logger  *zap.Logger
	Rewards domain.Rewards
	Length  int // stream length for seeded resets without a configured source
	Gather  prometheus.Gatherer

	mu       sync.Mutex
	sessions map[string]*session

	srcMu sync.Mutex // stream sources are not safe for concurrent use
}

type session struct {
	mu   sync.Mutex
	ctrl *episode.Controller
	seed uint64
	key  string
}

func New(uc *usecase.Service, logger *zap.Logger, rewards domain.Rewards, length int, gather prometheus.Gatherer) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if uc == nil {
		uc = usecase.NewService(nil, nil, nil, logger)
	}
	return &Handler{
		UC:       uc,
		Logger:   logger,
		Rewards:  rewards,
		Length:   length,
		Gather:   gather,
		sessions: make(map[string]*session),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/reset", h.handleReset)
	mux.HandleFunc("/api/step", h.handleStep)
	mux.HandleFunc("/api/snapshot", h.handleSnapshot)
	mux.HandleFunc("/api/close", h.handleClose)
	mux.HandleFunc("/api/records", h.handleRecords)
	mux.HandleFunc("/api/record", h.handleRecord)
	if h.Gather != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.Gather, promhttp.HandlerOpts{}))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

type errorResp struct {
	Error string `json:"error"`
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.Method != method {
		writeJSON(w, http.StatusMethodNotAllowed, errorResp{Error: "method not allowed"})
		return false
	}
	return true
}

func (h *Handler) lookup(id string) (*session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

// ---- Reset ----

type resetReq struct {
	Plain  string `json:"plain,omitempty"`
	Cipher string `json:"cipher,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
}

type resetResp struct {
	ID       string          `json:"id"`
	Seed     uint64          `json:"seed"`
	Length   int             `json:"length"`
	State    domain.Vector   `json:"state"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	var sample domain.Sample
	if req.Plain != "" || req.Cipher != "" {
		sample.Stream = domain.Stream{Plain: req.Plain, Cipher: req.Cipher}
	} else {
		ss, err := h.draw(r.Context(), seed)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp{Error: err.Error()})
			return
		}
		sample = ss[0]
	}

	c, err := episode.New(sample.Stream, rand.New(rand.NewPCG(seed, seed)), episode.WithRewards(h.Rewards))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	h.mu.Lock()
	h.sessions[c.ID()] = &session{ctrl: c, seed: seed, key: sample.Key}
	h.mu.Unlock()
	h.Logger.Debug("session opened", zap.String("id", c.ID()), zap.Int("length", sample.Stream.Len()))

	writeJSON(w, http.StatusOK, resetResp{
		ID:       c.ID(),
		Seed:     seed,
		Length:   sample.Stream.Len(),
		State:    c.State(),
		Snapshot: c.Snapshot(),
	})
}

// draw takes the next sample from the configured source, or a fresh random
// stream seeded by seed when none is configured.
func (h *Handler) draw(ctx context.Context, seed uint64) ([]domain.Sample, error) {
	if h.UC.Source == nil {
		return generator.NewRandomStreams(seed, h.Length).Samples(ctx, 1)
	}
	h.srcMu.Lock()
	defer h.srcMu.Unlock()
	ss, err := h.UC.Samples(ctx, 1)
	if err == nil && len(ss) == 0 {
		err = errors.New("stream source returned no samples")
	}
	return ss, err
}

// ---- Step ----

type stepReq struct {
	ID       string `json:"id"`
	Relation string `json:"relation"`
}

type stepResp struct {
	State    domain.Vector `json:"state"`
	Reward   int           `json:"reward"`
	Terminal bool          `json:"terminal"`
	Status   domain.Status `json:"status"`
}

func (h *Handler) handleStep(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req stepReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	rel, err := domain.ParseRelation(req.Relation)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	s, ok := h.lookup(req.ID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "unknown episode"})
		return
	}

	s.mu.Lock()
	obs, err := s.ctrl.Step(rel)
	var (
		rec    domain.Record
		recErr error
	)
	if err == nil && obs.Terminal {
		rec, recErr = h.complete(r.Context(), s)
	}
	s.mu.Unlock()
	if errors.Is(err, episode.ErrTerminal) {
		writeJSON(w, http.StatusConflict, errorResp{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	if recErr != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: recErr.Error()})
		return
	}
	if obs.Terminal && h.UC != nil && h.UC.Storage != nil {
		if err := h.UC.Save(r.Context(), &rec); err != nil {
			h.Logger.Warn("record not saved", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, stepResp{State: obs.State, Reward: obs.Reward, Terminal: obs.Terminal, Status: obs.Status})
}

// complete scores a finished session through the runner so validation and
// metrics match batch runs. The caller holds s.mu.
func (h *Handler) complete(ctx context.Context, s *session) (domain.Record, error) {
	if h.UC.Runner != nil {
		return h.UC.Runner.Complete(ctx, s.ctrl, s.key, s.seed)
	}
	rec := s.ctrl.Record()
	rec.Seed, rec.Key, rec.CreatedAt = s.seed, s.key, time.Now().UnixNano()
	return rec, nil
}

// ---- Snapshot / Close ----

type snapshotResp struct {
	Snapshot domain.Snapshot `json:"snapshot"`
	Status   domain.Status   `json:"status"`
	Pos      int             `json:"pos"`
	Reward   int             `json:"reward"`
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	s, ok := h.lookup(r.URL.Query().Get("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "unknown episode"})
		return
	}
	s.mu.Lock()
	resp := snapshotResp{Snapshot: s.ctrl.Snapshot(), Status: s.ctrl.Status(), Pos: s.ctrl.Pos(), Reward: s.ctrl.Reward()}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

type closeReq struct {
	ID string `json:"id"`
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req closeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid JSON or missing id"})
		return
	}
	h.mu.Lock()
	_, ok := h.sessions[req.ID]
	delete(h.sessions, req.ID)
	h.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "unknown episode"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID})
}

// ---- Records ----

type recordsResp struct {
	Records []domain.RecordMeta `json:"records"`
	Error   string              `json:"error,omitempty"`
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ms, err := h.UC.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, recordsResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, recordsResp{Records: ms})
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "missing id"})
		return
	}
	rec, err := h.UC.Load(r.Context(), id)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "record not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
