package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/events"
	"github.com/matzehuels/explode/pkg/observability"
	"github.com/matzehuels/explode/pkg/scheduler"
)

type explodeBody struct {
	Weight  *float64 `json:"weight"`
	Targets []string `json:"targets"`
	Sign    string   `json:"sign"`
	Speed   float64  `json:"speed"`
}

type ticketResponse struct {
	ID      string   `json:"id"`
	Queued  bool     `json:"queued"`
	Dropped []string `json:"dropped,omitempty"`
}

type statusResponse struct {
	Running   bool          `json:"running"`
	Current   *requestView  `json:"current,omitempty"`
	Queued    []requestView `json:"queued"`
	Ticks     int           `json:"ticks"`
	Active    []string      `json:"active"`
	Displaced bool          `json:"displaced"`
	Empty     bool          `json:"empty"`
}

type requestView struct {
	ID             string   `json:"id"`
	Sign           string   `json:"sign"`
	Scope          []string `json:"scope,omitempty"`
	WeightFraction float64  `json:"weight"`
	Speed          float64  `json:"speed"`
}

type partView struct {
	Name   string  `json:"name"`
	Parent string  `json:"parent,omitempty"`
	Offset float64 `json:"offset"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	State  string  `json:"state"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Parts         int    `json:"parts"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := s.sched.Tree().Len()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Parts:         n,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleExplode(w http.ResponseWriter, r *http.Request) {
	var body explodeBody
	if !s.decode(w, r, &body) {
		return
	}
	sign := scheduler.Forward
	if body.Sign != "" {
		parsed, err := scheduler.ParseSign(body.Sign)
		if err != nil {
			writeError(w, err)
			return
		}
		sign = parsed
	}
	weight := 1.0
	if body.Weight != nil {
		weight = *body.Weight
	}
	s.submit(w, r, scheduler.Request{
		Scope:          body.Targets,
		Sign:           sign,
		WeightFraction: weight,
		Speed:          body.Speed,
	})
}

func (s *Server) handleImplode(w http.ResponseWriter, r *http.Request) {
	var body explodeBody
	if !s.decode(w, r, &body) {
		return
	}
	s.submit(w, r, scheduler.Request{
		Scope:          body.Targets,
		Sign:           scheduler.Backward,
		WeightFraction: 1,
		Speed:          body.Speed,
	})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, req scheduler.Request) {
	s.mu.Lock()
	ticket, err := s.sched.Start(req)
	s.mu.Unlock()
	observability.Playback().OnRequestSubmitted(r.Context(), req.Sign.String(), len(req.Scope), err)

	if ticket.ID == "" {
		writeError(w, err)
		return
	}
	if err != nil {
		s.log.Warn("request accepted with dropped targets", "id", ticket.ID, "dropped", ticket.Dropped)
	}
	writeJSON(w, http.StatusAccepted, ticketResponse{ID: ticket.ID, Queued: ticket.Queued, Dropped: ticket.Dropped})
}

// decode reads an optional JSON body. An empty body leaves v unchanged.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	reader := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload exceeds limit", Code: errors.ErrCodeInvalidInput})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unable to read body", Code: errors.ErrCodeInvalidInput})
		return false
	}
	if len(data) == 0 {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error(), Code: errors.ErrCodeInvalidFormat})
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	st := s.sched.Status()
	resp := statusResponse{
		Running:   st.Running,
		Ticks:     st.Ticks,
		Active:    nonNil(st.Active),
		Queued:    []requestView{},
		Displaced: s.sched.IsAnyPartDisplaced(),
		Empty:     s.sched.IsTreeEmpty(),
	}
	s.mu.Unlock()

	if st.Current != nil {
		v := viewRequest(*st.Current)
		resp.Current = &v
	}
	for _, q := range st.Queued {
		resp.Queued = append(resp.Queued, viewRequest(q))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleParts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	tree := s.sched.Tree()
	out := make([]partView, 0, tree.Len())
	tree.ForEach(func(p *assembly.Part) { out = append(out, viewPart(tree, p)) })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	tree := s.sched.Tree()
	p, ok := tree.Lookup(name)
	var v partView
	if ok {
		v = viewPart(tree, p)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no part named %q", name))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "event history is disabled"))
		return
	}
	id := chi.URLParam(r, "id")
	recs, err := s.opts.History.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(recs) == 0 {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no events for request %s", id))
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func viewRequest(r scheduler.Request) requestView {
	return requestView{
		ID:             r.ID,
		Sign:           r.Sign.String(),
		Scope:          r.Scope,
		WeightFraction: r.WeightFraction,
		Speed:          r.Speed,
	}
}

func viewPart(t *assembly.Tree, p *assembly.Part) partView {
	v := partView{
		Name:   p.Name,
		Offset: p.Offset,
		Min:    p.Min,
		Max:    p.Max,
		State:  p.State().String(),
	}
	if parent, ok := t.Parent(p); ok {
		v.Parent = parent.Name
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// statusFor maps error codes to HTTP status codes.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeUnknownTarget, errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeQueueFull:
		return http.StatusTooManyRequests
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorResponse{Error: errors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var _ History = (*events.Recorder)(nil)
