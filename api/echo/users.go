package echo

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/wolliz-dev/wolliz-backend/domain"
	apierrors "github.com/wolliz-dev/wolliz-backend/errors"
	"github.com/wolliz-dev/wolliz-backend/internal/auth"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// UserAPI handles registration, login and user management endpoints.
type UserAPI struct {
	repo         domain.UserRepository
	hasher       auth.PasswordHasher
	tokenService *auth.TokenService
}

// NewUserAPI initializes the user API.
func NewUserAPI(repo domain.UserRepository, hasher auth.PasswordHasher, ts *auth.TokenService) *UserAPI {
	return &UserAPI{
		repo:         repo,
		hasher:       hasher,
		tokenService: ts,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// updatedUserResponse is the PUT response: the updated user plus a freshly
// issued token.
type updatedUserResponse struct {
	*domain.User
	Token string `json:"token"`
}

// Register creates a new user. The password is hashed before persistence and
// the response never contains the hash.
func (ua *UserAPI) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("invalid request body"))
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("username, email and password are required"))
	}

	ctx := c.Request().Context()

	if apiErr := ua.checkTaken(ctx, req.Username, req.Email, ""); apiErr != nil {
		return c.JSON(apiErr.Status, apiErr)
	}

	hash, err := ua.hasher.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := ua.repo.CreateUser(ctx, user); err != nil {
		// Two near-simultaneous registrations can both pass the checks
		// above; the store's unique constraint settles the race.
		if errors.Is(err, domain.ErrDuplicateUser) {
			return c.JSON(http.StatusConflict, apierrors.NewConflictError("username or email already in use"))
		}
		log.Error().Err(err).Msg("Failed to create user")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	return c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and returns a bearer token. An unknown
// username and a wrong password produce the identical response, so account
// existence never leaks.
func (ua *UserAPI) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("invalid request body"))
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("username and password are required"))
	}

	ctx := c.Request().Context()

	user, err := ua.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return invalidCredentials(c)
		}
		log.Error().Err(err).Msg("Failed to look up user for login")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	if err := ua.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		return invalidCredentials(c)
	}

	token, err := ua.tokenService.Issue(user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func invalidCredentials(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, apierrors.NewAuthError("invalid credentials"))
}

// GetAllUsers lists users. Pagination is limit/offset via query parameters,
// with a server-side default and cap.
func (ua *UserAPI) GetAllUsers(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("limit must be a positive integer"))
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("offset must be a non-negative integer"))
		}
		offset = parsed
	}

	users, err := ua.repo.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}
	if users == nil {
		users = []*domain.User{}
	}

	return c.JSON(http.StatusOK, users)
}

// GetUser returns a single user by ID.
func (ua *UserAPI) GetUser(c echo.Context) error {
	user, err := ua.repo.GetUserByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFoundError("user not found"))
		}
		log.Error().Err(err).Msg("Failed to fetch user")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateUser replaces username and email, and rehashes the password only
// when a new one is supplied. The response carries a freshly issued token.
func (ua *UserAPI) UpdateUser(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("invalid request body"))
	}
	if req.Username == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("username and email are required"))
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	user, err := ua.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFoundError("user not found"))
		}
		log.Error().Err(err).Msg("Failed to fetch user for update")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	if apiErr := ua.checkTaken(ctx, req.Username, req.Email, id); apiErr != nil {
		return c.JSON(apiErr.Status, apiErr)
	}

	user.Username = req.Username
	user.Email = req.Email
	if req.Password != "" {
		hash, err := ua.hasher.Hash(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
		}
		user.PasswordHash = hash
	}

	if err := ua.repo.UpdateUser(ctx, user); err != nil {
		return ua.updateError(c, err)
	}

	token, err := ua.tokenService.Issue(user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reissue token")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	return c.JSON(http.StatusOK, updatedUserResponse{User: user, Token: token})
}

type patchRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// PatchUser applies a partial update: only fields present in the request
// change.
func (ua *UserAPI) PatchUser(c echo.Context) error {
	var req patchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("invalid request body"))
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	user, err := ua.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFoundError("user not found"))
		}
		log.Error().Err(err).Msg("Failed to fetch user for patch")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	username := user.Username
	if req.Username != nil {
		if *req.Username == "" {
			return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("username must not be empty"))
		}
		username = *req.Username
	}
	email := user.Email
	if req.Email != nil {
		if *req.Email == "" {
			return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("email must not be empty"))
		}
		email = *req.Email
	}

	if apiErr := ua.checkTaken(ctx, username, email, id); apiErr != nil {
		return c.JSON(apiErr.Status, apiErr)
	}

	user.Username = username
	user.Email = email
	if req.Password != nil && *req.Password != "" {
		hash, err := ua.hasher.Hash(*req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
		}
		user.PasswordHash = hash
	}

	if err := ua.repo.UpdateUser(ctx, user); err != nil {
		return ua.updateError(c, err)
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user. Deleting an absent ID is a 404, not a no-op.
func (ua *UserAPI) DeleteUser(c echo.Context) error {
	if err := ua.repo.DeleteUser(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFoundError("user not found"))
		}
		log.Error().Err(err).Msg("Failed to delete user")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "user deleted"})
}

// checkTaken enforces uniqueness of username and email against all users
// other than excludeID. A nil return means no conflict.
func (ua *UserAPI) checkTaken(ctx context.Context, username, email, excludeID string) *apierrors.APIError {
	taken, err := ua.repo.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check username uniqueness")
		return apierrors.NewInternalError()
	}
	if taken {
		return apierrors.NewConflictError("username already taken")
	}

	taken, err = ua.repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check email uniqueness")
		return apierrors.NewInternalError()
	}
	if taken {
		return apierrors.NewConflictError("email already in use")
	}

	return nil
}

func (ua *UserAPI) updateError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, apierrors.NewNotFoundError("user not found"))
	case errors.Is(err, domain.ErrDuplicateUser):
		return c.JSON(http.StatusConflict, apierrors.NewConflictError("username or email already in use"))
	default:
		log.Error().Err(err).Msg("Failed to update user")
		return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
	}
}
