package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/config"
	"github.com/kulupsoft/klub/internal/middleware"
	"github.com/kulupsoft/klub/internal/user"
	"github.com/kulupsoft/klub/pkg/responses"
	"github.com/kulupsoft/klub/pkg/token"
	"github.com/kulupsoft/klub/pkg/validator"
	"github.com/kulupsoft/klub/utils"
)

type AuthController struct {
	repo   AuthRepository
	config *config.Config
}

func NewAuthController(repo AuthRepository, cfg *config.Config) *AuthController {
	return &AuthController{
		repo:   repo,
		config: cfg,
	}
}

// Login godoc
// @Summary      Staff login
// @Description  Authenticate with username and password, returns an access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Login credentials"
// @Success      200 {object} responses.SuccessResponse{data=AuthResponse}
// @Failure      400 {object} responses.ErrorResponse "Validation error"
// @Failure      401 {object} responses.ErrorResponse "Invalid credentials"
// @Failure      500 {object} responses.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	u, err := ac.repo.GetUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			responses.SendError(c, http.StatusUnauthorized, "Invalid username or password", nil)
			return
		}
		responses.SendError(c, http.StatusInternalServerError, "Login failed", err.Error())
		return
	}

	if !utils.CheckPassword(u.Password, req.Password) {
		responses.SendError(c, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	accessToken, err := token.GenerateJWT(u.ID, u.Role, ac.config.JWT.AccessTokenSecret, ac.config.JWT.AccessTokenExpiryMinutes)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Token generation failed", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Login successful", AuthResponse{
		AccessToken: accessToken,
		User:        FilterUserRecord(u),
	})
}

// Me godoc
// @Summary      Current staff profile
// @Tags         Auth
// @Produce      json
// @Success      200 {object} responses.SuccessResponse{data=UserResponse}
// @Failure      401 {object} responses.ErrorResponse "Unauthorized"
// @Failure      500 {object} responses.ErrorResponse "Internal server error"
// @Router       /auth/me [get]
// @Security     BearerAuth
func (ac *AuthController) Me(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		responses.SendError(c, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}

	u, err := ac.repo.GetUserByID(userID)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to load profile", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Profile retrieved successfully", FilterUserRecord(u))
}

// ChangePassword godoc
// @Summary      Change own password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Password change request"
// @Success      200 {object} responses.SuccessResponse "Password changed"
// @Failure      400 {object} responses.ErrorResponse "Validation error or wrong old password"
// @Failure      401 {object} responses.ErrorResponse "Unauthorized"
// @Failure      500 {object} responses.ErrorResponse "Internal server error"
// @Router       /auth/change-password [post]
// @Security     BearerAuth
func (ac *AuthController) ChangePassword(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		responses.SendError(c, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	u, err := ac.repo.GetUserByID(userID)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to load profile", err.Error())
		return
	}

	if !utils.CheckPassword(u.Password, req.OldPassword) {
		responses.SendError(c, http.StatusBadRequest, "Old password is incorrect", nil)
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Password hashing failed", err.Error())
		return
	}

	u.Password = hashed
	if err := ac.repo.UpdateUser(u); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to update password", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Password changed successfully", nil)
}

// CreateUser godoc
// @Summary      Create a staff account
// @Description  Admin creates a new staff account (admin or coach)
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        user body CreateUserRequest true "Staff account request"
// @Success      201 {object} responses.SuccessResponse{data=UserResponse}
// @Failure      400 {object} responses.ErrorResponse "Validation error"
// @Failure      409 {object} responses.ErrorResponse "Username or email already exists"
// @Failure      500 {object} responses.ErrorResponse "Internal server error"
// @Router       /auth/users [post]
// @Security     BearerAuth
func (ac *AuthController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	if _, err := ac.repo.GetUserByUsername(req.Username); err == nil {
		responses.SendError(c, http.StatusConflict, "User with this username already exists", nil)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		responses.SendError(c, http.StatusInternalServerError, "Failed to create user", err.Error())
		return
	}
	if _, err := ac.repo.GetUserByEmail(req.Email); err == nil {
		responses.SendError(c, http.StatusConflict, "User with this email already exists", nil)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		responses.SendError(c, http.StatusInternalServerError, "Failed to create user", err.Error())
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Password hashing failed", err.Error())
		return
	}

	u := user.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Role:     req.Role,
	}

	if err := ac.repo.CreateUser(&u); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to create user", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusCreated, "Staff account created successfully", FilterUserRecord(&u))
}
