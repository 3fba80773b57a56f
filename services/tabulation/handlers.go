package tabulation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/adminclient"
	"github.com/tabrela/tabrela/internal/apperr"
	"github.com/tabrela/tabrela/internal/httpmw"
)

type Handlers struct {
	repo     *Repo
	admin    *adminclient.Client
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandlers(repo *Repo, admin *adminclient.Client, log zerolog.Logger) *Handlers {
	return &Handlers{repo: repo, admin: admin, validate: validator.New(), log: log}
}

func decodeJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, apperr.Validationf("invalid request body: %v", err)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parseParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 {
		return h[7:]
	}
	return ""
}

func (h *Handlers) callerIsAdmin(ctx context.Context, r *http.Request) bool {
	userID, ok := httpmw.UserID(ctx)
	if !ok {
		return false
	}
	isAdmin, err := h.admin.IsAdmin(ctx, bearerToken(r), userID.String())
	return err == nil && isAdmin
}

// --- Series ---

func (h *Handlers) CreateSeries(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[CreateSeriesRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid series payload: %v", err))
		return
	}
	exists, err := h.repo.EventExists(r.Context(), req.EventID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	if !exists {
		apperr.Write(w, h.log, apperr.NotFoundf("event not found"))
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	series, err := h.repo.CreateSeries(r.Context(), req, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, series)
}

func (h *Handlers) ListSeries(w http.ResponseWriter, r *http.Request) {
	var eventID *uuid.UUID
	if v := r.URL.Query().Get("event_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			apperr.Write(w, h.log, apperr.Validationf("invalid event_id"))
			return
		}
		eventID = &id
	}
	series, err := h.repo.ListSeries(r.Context(), eventID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": series})
}

func (h *Handlers) GetSeries(w http.ResponseWriter, r *http.Request) {
	id, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid series id"))
		return
	}
	series, err := h.repo.GetSeries(r.Context(), id)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("series not found"))
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// --- Matches ---

func (h *Handlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[CreateMatchRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match payload: %v", err))
		return
	}
	series, err := h.repo.GetSeries(r.Context(), req.SeriesID)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("series not found"))
		return
	}
	match, teams, err := h.repo.CreateMatch(r.Context(), req, series.TeamFormat)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"match": match, "teams": teams})
}

func (h *Handlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	var seriesID *uuid.UUID
	if v := r.URL.Query().Get("series_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			apperr.Write(w, h.log, apperr.Validationf("invalid series_id"))
			return
		}
		seriesID = &id
	}
	matches, err := h.repo.ListMatches(r.Context(), seriesID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// matchView renders a match + its teams, applying the release-gating
// read path of spec §4.4.6 for non-admin callers.
type matchView struct {
	Match Match            `json:"match"`
	Teams []teamViewFields `json:"teams"`
}

type teamViewFields struct {
	MatchTeam
	FinalRank          *int     `json:"final_rank,omitempty"`
	TotalSpeakerPoints *float64 `json:"total_speaker_points,omitempty"`
}

func (h *Handlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	match, err := h.repo.GetMatch(ctx, id)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("match not found"))
		return
	}
	teams, err := h.repo.ListTeamsForMatch(ctx, id)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	isAdmin := h.callerIsAdmin(ctx, r)
	views := make([]teamViewFields, len(teams))
	for i, t := range teams {
		v := teamViewFields{MatchTeam: t}
		if isAdmin || match.RankingsReleased {
			v.FinalRank = t.FinalRank
		}
		if isAdmin || match.ScoresReleased {
			v.TotalSpeakerPoints = t.TotalSpeakerPoints
		}
		views[i] = v
	}

	writeJSON(w, http.StatusOK, matchView{Match: match, Teams: views})
}

func (h *Handlers) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	req, err := decodeJSON[UpdateMatchRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match payload: %v", err))
		return
	}
	match, err := h.repo.UpdateMatch(r.Context(), id, req)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("match not found"))
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *Handlers) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid team id"))
		return
	}
	req, err := decodeJSON[UpdateTeamRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	team, err := h.repo.UpdateTeam(r.Context(), id, req)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("team not found"))
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handlers) Release(w http.ResponseWriter, r *http.Request) {
	id, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	req, err := decodeJSON[ReleaseRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	match, err := h.repo.SetRelease(r.Context(), id, req)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("match not found"))
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// --- Allocation pool ---

func (h *Handlers) Pool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seriesID, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid series id"))
		return
	}
	series, err := h.repo.GetSeries(ctx, seriesID)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("series not found"))
		return
	}

	checkedIn, err := h.repo.CheckedInUsersForEvent(ctx, series.EventID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	resp := PoolResponse{Totals: PoolTotals{CheckedIn: len(checkedIn)}}
	for _, u := range checkedIn {
		current, err := h.repo.CurrentAllocationForUser(ctx, seriesID, u.UserID)
		if err != nil {
			apperr.Write(w, h.log, apperr.Internal(err))
			return
		}
		cu := CheckedInUser{UserID: u.UserID, Username: u.Username, CheckedInAt: u.CheckedInAt}
		if current != nil {
			cu.IsAllocated = true
			cu.CurrentAllocation = current
			resp.Totals.Allocated++
		}
		resp.CheckedInUsers = append(resp.CheckedInUsers, cu)
	}
	resp.Totals.Available = resp.Totals.CheckedIn - resp.Totals.Allocated

	writeJSON(w, http.StatusOK, resp)
}

// --- Allocations ---

func (h *Handlers) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[CreateAllocationRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid allocation payload: %v", err))
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	allocation, err := h.repo.CreateAllocation(r.Context(), req, userID)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, allocation)
}

func (h *Handlers) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	id, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid allocation id"))
		return
	}
	req, err := decodeJSON[UpdateAllocationRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	allocation, err := h.repo.UpdateAllocation(r.Context(), id, req, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("allocation not found"))
		return
	}
	writeJSON(w, http.StatusOK, allocation)
}

func (h *Handlers) SwapAllocations(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[SwapAllocationsRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid swap payload: %v", err))
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	a1, a2, err := h.repo.SwapAllocations(r.Context(), req.ID1, req.ID2, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"allocation_1": a1, "allocation_2": a2})
}

func (h *Handlers) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	id, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid allocation id"))
		return
	}
	userID, _ := httpmw.UserID(r.Context())
	if err := h.repo.DeleteAllocation(r.Context(), id, userID); err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("allocation not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AllocationHistory(w http.ResponseWriter, r *http.Request) {
	matchID, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	history, err := h.repo.ListAllocationHistory(r.Context(), matchID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// --- Ballots ---

func (h *Handlers) MyBallot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchID, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	userID, _ := httpmw.UserID(ctx)

	allocation, err := h.repo.AdjudicatorAllocation(ctx, matchID, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Forbiddenf("no adjudicator allocation for this match"))
		return
	}

	ballot, err := h.repo.GetOrCreateBallot(ctx, matchID, userID, allocation.Role == RoleVotingAdjudicator)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	scores, err := h.repo.ListSpeakerScoresForBallot(ctx, ballot.ID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	rankings, err := h.repo.ListTeamRankingsForBallot(ctx, ballot.ID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ballot": ballot, "speaker_scores": scores, "team_rankings": rankings})
}

func (h *Handlers) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchID, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	req, err := decodeJSON[SubmitBallotRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid ballot payload: %v", err))
		return
	}
	userID, _ := httpmw.UserID(ctx)
	allocation, err := h.repo.AdjudicatorAllocation(ctx, matchID, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Forbiddenf("no adjudicator allocation for this match"))
		return
	}
	ballot, err := h.repo.SubmitBallot(ctx, matchID, allocation, req)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.repo.RecomputeMatchResults(ctx, matchID); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, ballot)
}

func (h *Handlers) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchID, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	req, err := decodeJSON[SubmitFeedbackRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid feedback payload: %v", err))
		return
	}
	userID, _ := httpmw.UserID(ctx)
	allocation, err := h.repo.AdjudicatorAllocation(ctx, matchID, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Forbiddenf("no adjudicator allocation for this match"))
		return
	}
	ballot, err := h.repo.SubmitFeedback(ctx, matchID, allocation, req)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, ballot)
}

func (h *Handlers) AdminMatchBallots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchID, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid match id"))
		return
	}
	allocations, err := h.repo.ListAllocationsForMatch(ctx, matchID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	type ballotView struct {
		Ballot        Ballot         `json:"ballot"`
		SpeakerScores []SpeakerScore `json:"speaker_scores"`
		TeamRankings  []TeamRanking  `json:"team_rankings"`
	}
	var views []ballotView
	seen := map[uuid.UUID]bool{}
	for _, a := range allocations {
		if a.Role != RoleVotingAdjudicator && a.Role != RoleNonVotingAdjudicator {
			continue
		}
		if a.UserID == nil || seen[*a.UserID] {
			continue
		}
		seen[*a.UserID] = true
		ballot, err := h.repo.GetOrCreateBallot(ctx, matchID, *a.UserID, a.Role == RoleVotingAdjudicator)
		if err != nil {
			continue
		}
		scores, _ := h.repo.ListSpeakerScoresForBallot(ctx, ballot.ID)
		rankings, _ := h.repo.ListTeamRankingsForBallot(ctx, ballot.ID)
		views = append(views, ballotView{Ballot: ballot, SpeakerScores: scores, TeamRankings: rankings})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ballots": views})
}

// --- Performance ---

func (h *Handlers) Performance(w http.ResponseWriter, r *http.Request) {
	userID, err := parseParam(r, "id")
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid user id"))
		return
	}
	var eventID *uuid.UUID
	if v := r.URL.Query().Get("event_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			apperr.Write(w, h.log, apperr.Validationf("invalid event_id"))
			return
		}
		eventID = &id
	}
	stats, err := h.repo.Performance(r.Context(), userID, eventID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "tabulation"})
}
