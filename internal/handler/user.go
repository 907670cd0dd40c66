package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segara/lending-engine/internal/domain"
	"github.com/segara/lending-engine/internal/service"
	"github.com/segara/lending-engine/pkg/auth"
	"github.com/segara/lending-engine/pkg/response"
)

type UserHandler struct {
	service   *service.UserService
	validator *validator.Validate
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Register handles POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	user, err := h.service.Register(r.Context(), &request)
	if err != nil {
		handleError(w, err)
		return
	}

	response.Created(w, user)
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	token, err := h.service.Login(r.Context(), &request)
	if err != nil {
		handleError(w, err)
		return
	}

	response.Success(w, domain.LoginResponse{Token: token})
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())

	user, err := h.service.Get(r.Context(), claims.UserID)
	if err != nil {
		handleError(w, err)
		return
	}

	response.Success(w, user)
}
