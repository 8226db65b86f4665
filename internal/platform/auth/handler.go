package auth

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *Service
	// devMode logs the generated code instead of relying on mail
	// delivery, so the flow can be exercised locally end to end.
	devMode bool
}

func RegisterRoutes(r gin.IRoutes, svc *Service, devMode bool) {
	h := &AuthHandler{svc: svc, devMode: devMode}
	r.POST("/initiate", h.Initiate)
	r.POST("/complete", h.Complete)
}

type InitiateRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *AuthHandler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id, otp, err := h.svc.Initiate(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "initiate failed"})
		return
	}

	if h.devMode {
		log.Printf("[INFO] auth: otp for %s (id %s): %s", req.Email, id, otp)
	}
	// TODO: hand otp to a mail sender once one exists; until then dev
	// mode is the only delivery channel.

	c.JSON(http.StatusOK, gin.H{"id": id})
}

type CompleteRequest struct {
	ID  string `json:"id" binding:"required"`
	OTP string `json:"otp" binding:"required"`
}

func (h *AuthHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.svc.Complete(c.Request.Context(), req.ID, req.OTP)
	if err != nil {
		if err == ErrVerificationFailed {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id or code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "complete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Verification successful",
	})
}
