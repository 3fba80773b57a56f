package merit

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

// Me returns the caller's own merit ledger entry (spec §4.3).
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpmw.UserID(r.Context())
	m, err := h.repo.GetOrCreateMerit(r.Context(), userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) MeHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpmw.UserID(r.Context())
	history, err := h.repo.ListMeritHistory(r.Context(), userID, 100, 0)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// AdjustMerit is the admin-only merit-delta endpoint. Self-merit is
// prohibited: an admin cannot adjust their own ledger, per spec §8.
func (h *Handlers) AdjustMerit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[AdjustMeritRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid merit adjustment payload: %v", err))
		return
	}
	adminID, _ := httpmw.UserID(r.Context())
	if req.UserID == adminID {
		apperr.Write(w, h.log, apperr.Forbiddenf("admins cannot adjust their own merit"))
		return
	}
	hist, err := h.repo.AdjustMerit(r.Context(), req.UserID, adminID, req.ChangeAmount, req.Reason)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, hist)
}

// MyAwards returns the caller's own award list (spec §6 GET /awards/me).
func (h *Handlers) MyAwards(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpmw.UserID(r.Context())
	awards, err := h.repo.ListAwardsForUser(r.Context(), userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": awards})
}

// MyAwardHistory returns the caller's own award-history entries
// (spec §6 GET /awards/me/history).
func (h *Handlers) MyAwardHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpmw.UserID(r.Context())
	history, err := h.repo.ListAwardHistory(r.Context(), userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// AdminUserMerit is the plain merit-ledger lookup for a given user,
// distinct from AdminMeritHistory's list of adjustment entries
// (spec §6 GET /admin/merit/:user_id).
func (h *Handlers) AdminUserMerit(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid user id"))
		return
	}
	m, err := h.repo.GetOrCreateMerit(r.Context(), userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// AdminAwardHistory returns a given user's award-history entries
// (spec §6 GET /admin/awards/:user_id/history).
func (h *Handlers) AdminAwardHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid user id"))
		return
	}
	history, err := h.repo.ListAwardHistory(r.Context(), userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *Handlers) AdminMeritHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid user id"))
		return
	}
	history, err := h.repo.ListMeritHistory(r.Context(), userID, 200, 0)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// AdminList returns the leaderboard of verified users ordered by
// merit_points desc, username asc (spec §4.3 / original precision point).
func (h *Handlers) AdminList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListVerifiedMerits(r.Context())
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"merits": rows})
}

func (h *Handlers) CreateAward(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[CreateAwardRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid award payload: %v", err))
		return
	}
	adminID, _ := httpmw.UserID(r.Context())
	award, err := h.repo.CreateAward(r.Context(), req, adminID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, award)
}

func (h *Handlers) UpgradeAward(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid award id"))
		return
	}
	req, err := decodeJSON[UpgradeAwardRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid upgrade payload: %v", err))
		return
	}
	current, err := h.repo.CurrentAwardTier(r.Context(), id)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("award not found"))
		return
	}
	if err := validateUpgrade(current, req.NewTier); err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	adminID, _ := httpmw.UserID(r.Context())
	award, err := h.repo.UpgradeAward(r.Context(), id, req.NewTier, req.NewTitle, req.Reason, adminID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, award)
}

// EditAward is a free-form admin correction (title/description/tier)
// that does not go through the ascending-tier check or write history —
// it is meant for fixing a clerical mistake, not for a real promotion.
func (h *Handlers) EditAward(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid award id"))
		return
	}
	req, err := decodeJSON[EditAwardRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid award edit: %v", err))
		return
	}
	award, err := h.repo.EditAward(r.Context(), id, req)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("award not found"))
		return
	}
	writeJSON(w, http.StatusOK, award)
}

func (h *Handlers) UserAwards(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.repo.GetUserByUsername(r.Context(), username)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("user not found"))
		return
	}
	awards, err := h.repo.ListAwardsForUser(r.Context(), user.ID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": awards})
}

// Profile renders a user's profile, shaped to one of three
// visibility tiers: public (anonymous/other caller), private (the
// user viewing themself), admin (an admin viewing anyone), per spec §4.3.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")
	user, err := h.repo.GetUserByUsername(ctx, username)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("user not found"))
		return
	}

	visibility := VisibilityPublic
	callerID, authenticated := httpmw.UserID(ctx)
	if authenticated && callerID == user.ID {
		visibility = VisibilityPrivate
	}
	if authenticated && h.callerIsAdmin(ctx, r) {
		visibility = VisibilityAdmin
	}

	profile := Profile{
		ID:         user.ID,
		Username:   user.Username,
		YearJoined: user.YearJoined,
		CreatedAt:  user.CreatedAt,
	}

	if visibility == VisibilityPrivate || visibility == VisibilityAdmin {
		profile.Email = &user.Email
		profile.RegNumber = &user.RegNumber
		profile.PhoneNumber = &user.PhoneNumber
		profile.EmailVerified = &user.EmailVerified
	}

	merit, err := h.repo.GetOrCreateMerit(ctx, user.ID)
	if err == nil {
		profile.MeritPoints = &merit.MeritPoints
	}

	if visibility == VisibilityAdmin {
		isAdmin, err := h.repo.IsAdmin(ctx, user.ID)
		if err == nil {
			profile.IsAdmin = &isAdmin
		}
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "merit"})
}
