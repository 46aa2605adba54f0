package httpapi

import (
	"net/http"

	"github.com/opsdeck/backoffice/internal/app/services/users"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/httputil"
)

func (h *Handler) handleUserList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.UserFilter{
		Username: q.Get("username"),
		Email:    q.Get("email"),
		DeptID:   httputil.QueryInt64(r, "dept_id"),
		PageArgs: httputil.PageFromQuery(r),
	}
	list, total, err := h.app.Users.List(r.Context(), f)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OKPage(w, list, total, f.PageArgs)
}

func (h *Handler) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "user_id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("user_id is required"))
		return
	}
	u, err := h.app.Users.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, u)
}

// userPayload is shared by create and update; RoleIDs keeps the nil/empty
// distinction so updates can leave assignments untouched.
type userPayload struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username" validate:"required"`
	Nickname    string  `json:"nickname"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Password    string  `json:"password"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	DeptID      int64   `json:"dept_id"`
	RoleIDs     []int64 `json:"role_ids"`
}

func (h *Handler) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	u, err := h.app.Users.Create(r.Context(), users.CreateParams{
		Username:    payload.Username,
		Nickname:    payload.Nickname,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Password:    payload.Password,
		IsActive:    payload.IsActive,
		IsSuperuser: payload.IsSuperuser,
		DeptID:      payload.DeptID,
		RoleIDs:     payload.RoleIDs,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, u)
}

func (h *Handler) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}
	if payload.ID == 0 {
		httputil.Error(w, errdefs.Business("id is required"))
		return
	}

	u, err := h.app.Users.Update(r.Context(), users.UpdateParams{
		ID:          payload.ID,
		Username:    payload.Username,
		Nickname:    payload.Nickname,
		Email:       payload.Email,
		Phone:       payload.Phone,
		IsActive:    payload.IsActive,
		IsSuperuser: payload.IsSuperuser,
		DeptID:      payload.DeptID,
		RoleIDs:     payload.RoleIDs,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, u)
}

func (h *Handler) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryInt64(r, "user_id")
	if id == 0 {
		httputil.Error(w, errdefs.Business("user_id is required"))
		return
	}
	if err := h.app.Users.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, nil)
}

func (h *Handler) handleUserResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID int64 `json:"user_id" validate:"required"`
	}
	if err := httputil.Bind(w, r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	password, err := h.app.Users.ResetPassword(r.Context(), payload.UserID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.OK(w, map[string]string{"password": password})
}
