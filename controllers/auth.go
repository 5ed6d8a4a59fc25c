package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type AuthController struct {
	accounts *services.AccountService
}

func NewAuthController(accounts *services.AccountService) *AuthController {
	return &AuthController{accounts: accounts}
}

// Register godoc
// @Summary Register a patient, doctor or pharmacist account
// @Tags auth
// @Accept json
// @Produce json
// @Param account body services.RegisterInput true "Account"
// @Success 201 {object} models.Profile
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (h *AuthController) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	profile, err := h.accounts.Register(c.UserContext(), in)
	if err != nil {
		return utils.RespondError(c, "Failed to register", err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// Login godoc
// @Summary Sign in and receive a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body object true "email and password"
// @Success 200 {object} services.Session
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (h *AuthController) Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var in LoginInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	session, err := h.accounts.Login(c.UserContext(), in.Email, in.Password, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return utils.RespondError(c, "Invalid credentials", err)
	}
	return c.JSON(session)
}

// Me godoc
// @Summary Current user with role details
// @Tags auth
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/me [get]
func (h *AuthController) Me(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	profile, err := h.accounts.CurrentUser(c.UserContext(), a)
	if err != nil {
		return utils.RespondError(c, "Failed to load profile", err)
	}
	return c.JSON(profile)
}

// Logout godoc
// @Summary Sign out
// @Description Tokens are stateless; the client discards its copy.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthController) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Successfully logged out",
	})
}

// Doctors godoc
// @Summary List doctors with their profiles
// @Tags auth
// @Produce json
// @Success 200 {array} models.Doctor
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /doctors [get]
func (h *AuthController) Doctors(c *fiber.Ctx) error {
	doctors, err := h.accounts.ListDoctors(c.UserContext())
	if err != nil {
		return utils.RespondError(c, "Failed to fetch doctors", err)
	}
	return c.JSON(doctors)
}
