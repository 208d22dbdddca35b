package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"user-service/internal/core/auth"
	"user-service/internal/domain"
	"user-service/internal/service"
	httpez "user-service/internal/transport/http/ez"
	resp "user-service/internal/transport/http/response"
)

// Users is what the user routes need; *service.UserService implements it.
type Users interface {
	Register(ctx context.Context, in service.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, in service.UpdateInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]domain.User, error)
	Follow(ctx context.Context, actorID, targetID string) (*domain.User, error)
	Unfollow(ctx context.Context, actorID, targetID string) (*domain.User, error)
}

type UserHandler struct {
	users Users
}

func NewUserHandler(users Users) *UserHandler { return &UserHandler{users: users} }

type registerReq struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type searchReq struct {
	Query string `form:"query"`
}

type updateReq struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Mobile   *string `json:"mobile"`
	Password *string `json:"password"`
}

type followReq struct {
	UserIDToFollow string `json:"userIdToFollow"`
}

type unfollowReq struct {
	UserIDToUnfollow string `json:"userIdToUnfollow"`
}

// subject is the authenticated caller set by middleware.AuthJWT.
func subject(c *gin.Context) (string, error) {
	uid, ok := auth.SubjectFrom(c.Request.Context())
	if !ok {
		return "", httpez.Unauthorized("No token, authorization denied")
	}
	return uid, nil
}

// Mount registers the public routes on pub and the protected ones on priv.
// Literal paths are registered before /:id.
func (h *UserHandler) Mount(pub, priv httpez.EZ) {
	httpez.RegisterAction(pub, httpez.Action[registerReq, service.AuthResult]{
		Method:  http.MethodPost,
		Path:    "/register",
		Binder:  httpez.BindJSON,
		Status:  http.StatusCreated,
		FailMsg: "Error registering user",
		Handler: func(c *gin.Context, in *registerReq) (service.AuthResult, error) {
			return h.users.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Mobile: in.Mobile, Email: in.Email, Password: in.Password,
			})
		},
	})

	httpez.RegisterAction(pub, httpez.Action[loginReq, service.AuthResult]{
		Method:  http.MethodPost,
		Path:    "/login",
		Binder:  httpez.BindJSON,
		FailMsg: "Error logging in",
		Handler: func(c *gin.Context, in *loginReq) (service.AuthResult, error) {
			return h.users.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	httpez.RegisterAction(priv, httpez.Action[searchReq, []domain.User]{
		Method:  http.MethodGet,
		Path:    "/search",
		Binder:  httpez.BindQuery,
		FailMsg: "Error searching users",
		Handler: func(c *gin.Context, in *searchReq) ([]domain.User, error) {
			return h.users.Search(c.Request.Context(), in.Query)
		},
	})

	httpez.RegisterAction(priv, httpez.Action[followReq, *domain.User]{
		Method:  http.MethodPost,
		Path:    "/follow",
		Binder:  httpez.BindJSON,
		FailMsg: "Error following user",
		Handler: func(c *gin.Context, in *followReq) (*domain.User, error) {
			uid, err := subject(c)
			if err != nil {
				return nil, err
			}
			return h.users.Follow(c.Request.Context(), uid, in.UserIDToFollow)
		},
	})

	httpez.RegisterAction(priv, httpez.Action[unfollowReq, *domain.User]{
		Method:  http.MethodPost,
		Path:    "/unfollow",
		Binder:  httpez.BindJSON,
		FailMsg: "Error unfollowing user",
		Handler: func(c *gin.Context, in *unfollowReq) (*domain.User, error) {
			uid, err := subject(c)
			if err != nil {
				return nil, err
			}
			return h.users.Unfollow(c.Request.Context(), uid, in.UserIDToUnfollow)
		},
	})

	httpez.RegisterAction(priv, httpez.Action[struct{}, *domain.User]{
		Method:  http.MethodGet,
		Path:    "/:id",
		Binder:  httpez.BindNone,
		FailMsg: "Error fetching user",
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.users.Get(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(priv, httpez.Action[updateReq, *domain.User]{
		Method:  http.MethodPut,
		Path:    "/:id",
		Binder:  httpez.BindJSON,
		FailMsg: "Error updating user",
		Handler: func(c *gin.Context, in *updateReq) (*domain.User, error) {
			return h.users.Update(c.Request.Context(), c.Param("id"), service.UpdateInput{
				Name: in.Name, Email: in.Email, Mobile: in.Mobile, Password: in.Password,
			})
		},
	})

	httpez.RegisterAction(priv, httpez.Action[struct{}, resp.Msg]{
		Method:  http.MethodDelete,
		Path:    "/:id",
		Binder:  httpez.BindNone,
		FailMsg: "Error deleting user",
		Handler: func(c *gin.Context, _ *struct{}) (resp.Msg, error) {
			if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
				return resp.Msg{}, err
			}
			return resp.Message("User deleted successfully"), nil
		},
	})
}
