package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/iuork/iuork-backend/internal/models"
	"github.com/iuork/iuork-backend/internal/utils"
)

// GoogleOAuthHandler signs clients in with Google. First-time logins get a
// CLIENT account; professionals register through the normal signup flow.
type GoogleOAuthHandler struct {
	DB              *gorm.DB
	JWTSecret       string
	Expires         int
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	st := randomState(32)

	c.Cookie(&fiber.Cookie{
		Name:     "oauth_state",
		Value:    st,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   10 * 60,
	})

	return c.Redirect(h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline), fiber.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" || state != c.Cookies("oauth_state") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid oauth state",
		})
	}

	cfg := h.oauthCfg()
	tok, err := cfg.Exchange(c.Context(), code)
	if err != nil {
		log.Println("google oauth exchange failed:", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "google sign-in failed",
		})
	}

	resp, err := cfg.Client(c.Context(), tok).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		log.Println("google userinfo fetch failed:", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "google sign-in failed",
		})
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"message": "google sign-in failed",
		})
	}

	var user models.User
	err = h.DB.Where("email = ?", info.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Name:         info.Name,
			Email:        info.Email,
			AvatarURL:    info.Picture,
			PasswordHash: randomState(24), // unusable, google-only account
			Role:         models.RoleClient,
		}
		if err := h.DB.Create(&user).Error; err != nil {
			return serviceError(c, err)
		}
	} else if err != nil {
		return serviceError(c, err)
	}

	jwtStr, err := utils.SignJWT(h.JWTSecret, user.ID, user.Role, h.Expires)
	if err != nil {
		return serviceError(c, err)
	}

	redirect := h.FrontendBaseURL + "/auth/callback?token=" + url.QueryEscape(jwtStr)
	return c.Redirect(redirect, fiber.StatusTemporaryRedirect)
}
