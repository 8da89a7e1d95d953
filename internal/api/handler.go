package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mkotelnikov/courtside/internal/model"
	"github.com/mkotelnikov/courtside/internal/service"
	"github.com/mkotelnikov/courtside/pkg/logger"
)

type Handler struct {
	user       *service.UserService
	team       *service.TeamService
	invitation *service.InvitationService

	healthChecker HealthChecker

	tokenSecret string
	logger      *zap.Logger
}

func NewHandler(logger *zap.Logger, tokenSecret string) *Handler {
	return &Handler{
		logger:      logger,
		tokenSecret: tokenSecret,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithUserService(user *service.UserService) *Handler {
	h.user = user
	return h
}

func (h *Handler) WithTeamService(team *service.TeamService) *Handler {
	h.team = team
	return h
}

func (h *Handler) WithInvitationService(inv *service.InvitationService) *Handler {
	h.invitation = inv
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.healthChecker.HealthCheck())

	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	// Invitation delivery links resolve without a session; the token is
	// read-only and never authorizes a mutation.
	e.GET("/invitations/token/:token", h.GetInvitationByToken)

	secured := e.Group("", AuthMiddleware(h.tokenSecret))

	secured.POST("/users/managed", h.RegisterManagedProfile)
	secured.GET("/users/:id", h.GetUser)

	secured.POST("/leagues", h.CreateLeague)
	secured.POST("/leagues/:id/admins", h.AddLeagueAdmin)
	secured.POST("/leagues/:id/seasons", h.CreateSeason)

	secured.POST("/teams", h.CreateTeam)
	secured.GET("/teams/:id", h.GetTeam)
	secured.POST("/teams/:id/roles", h.CreateRole)
	secured.POST("/teams/:id/staff", h.AssignStaff)
	secured.POST("/teams/:id/members", h.AddMember)
	secured.POST("/teams/:id/invitations", h.CreateInvitation)

	secured.POST("/invitations/:id/accept", h.AcceptInvitation)
	secured.POST("/invitations/:id/reject", h.RejectInvitation)
	secured.POST("/invitations/:id/cancel", h.CancelInvitation)
}

func (h *Handler) Register(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	req := &service.RegisterPayload{}
	if err := h.decodeRequest(e, req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	user, err := h.user.Register(e.Request().Context(), req)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	token, err := h.user.Login(e.Request().Context(), req.Username, req.Password)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) RegisterManagedProfile(e echo.Context) error {
	var req struct {
		Username string `json:"username" validate:"required,min=3,max=64"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	user, err := h.user.RegisterManagedProfile(e.Request().Context(), req.Username)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUser(e echo.Context) error {
	user, err := h.user.GetUser(e.Request().Context(), e.Param("id"))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, user)
}

func (h *Handler) CreateLeague(e echo.Context) error {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	league, err := h.team.CreateLeague(e.Request().Context(), req.Name, requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, league)
}

func (h *Handler) AddLeagueAdmin(e echo.Context) error {
	var req struct {
		UserID string `json:"user_id" validate:"required"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	if err := h.team.AddLeagueAdmin(e.Request().Context(), e.Param("id"), req.UserID, requesterID(e)); err != nil {
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateSeason(e echo.Context) error {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	season, err := h.team.CreateSeason(e.Request().Context(), e.Param("id"), req.Name, requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, season)
}

func (h *Handler) CreateTeam(e echo.Context) error {
	var req struct {
		SeasonID string `json:"season_id" validate:"required"`
		Name     string `json:"name" validate:"required"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	team, err := h.team.CreateTeam(e.Request().Context(), req.SeasonID, req.Name, requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, team)
}

func (h *Handler) GetTeam(e echo.Context) error {
	team, members, err := h.team.GetTeam(e.Request().Context(), e.Param("id"), requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, struct {
		Team    *model.Team         `json:"team"`
		Members []*model.TeamMember `json:"members"`
	}{Team: team, Members: members})
}

func (h *Handler) CreateRole(e echo.Context) error {
	var req struct {
		Name         string              `json:"name" validate:"required"`
		Capabilities model.CapabilitySet `json:"capabilities"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	role, err := h.team.CreateRole(e.Request().Context(), e.Param("id"), &model.TeamRole{
		Name:         req.Name,
		Capabilities: req.Capabilities,
	}, requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, role)
}

func (h *Handler) AssignStaff(e echo.Context) error {
	var req struct {
		UserID string `json:"user_id" validate:"required"`
		RoleID string `json:"role_id" validate:"required"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	if err := h.team.AssignStaff(e.Request().Context(), e.Param("id"), req.UserID, req.RoleID, requesterID(e)); err != nil {
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) AddMember(e echo.Context) error {
	var req struct {
		PlayerID     string  `json:"player_id" validate:"required"`
		JerseyNumber *int    `json:"jersey_number,omitempty" validate:"omitempty,min=0,max=99"`
		Position     *string `json:"position,omitempty"`
	}
	if err := h.decodeRequest(e, &req); err != nil {
		return h.transportError(e, err)
	}

	member, err := h.team.AddMember(e.Request().Context(), e.Param("id"), &model.TeamMember{
		PlayerID:     req.PlayerID,
		JerseyNumber: req.JerseyNumber,
		Position:     req.Position,
	}, requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, member)
}

func (h *Handler) CreateInvitation(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	req := &service.CreateInvitationPayload{}
	if err := h.decodeRequest(e, req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	inv, err := h.invitation.CreateInvitation(e.Request().Context(), e.Param("id"), req, requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, inv)
}

func (h *Handler) AcceptInvitation(e echo.Context) error {
	result, err := h.invitation.AcceptInvitation(e.Request().Context(), e.Param("id"), requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, result)
}

func (h *Handler) RejectInvitation(e echo.Context) error {
	inv, err := h.invitation.RejectInvitation(e.Request().Context(), e.Param("id"), requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, inv)
}

func (h *Handler) CancelInvitation(e echo.Context) error {
	inv, err := h.invitation.CancelInvitation(e.Request().Context(), e.Param("id"), requesterID(e))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, inv)
}

func (h *Handler) GetInvitationByToken(e echo.Context) error {
	inv, err := h.invitation.GetInvitationByToken(e.Request().Context(), e.Param("token"))
	if err != nil {
		return h.transportError(e, err)
	}
	return e.JSON(http.StatusOK, inv)
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	switch err.Code {
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeForbidden:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeConflict:
		return e.JSON(http.StatusConflict, response)
	case service.ErrorCodeInvalidState, service.ErrorCodeInvalidBody:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeUnauthorized:
		return e.JSON(http.StatusUnauthorized, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
