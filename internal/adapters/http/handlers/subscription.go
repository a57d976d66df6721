package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/dto"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

// SubscriptionHandler handles subscriber signup, confirmation, and opt-out.
type SubscriptionHandler struct {
	service *app.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(service *app.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

// SubscribeRequest is the JSON body for a subscription signup.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UnsubscribeRequest is the JSON body for an opt-out.
type UnsubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required,notempty"`
}

// SubscriptionResponse reports the subscriber state after a lifecycle change.
type SubscriptionResponse struct {
	Email   string `json:"email"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func toSubscriptionResponse(s domain.Subscriber, message string) SubscriptionResponse {
	return SubscriptionResponse{
		Email:   s.Email,
		Status:  string(s.Status),
		Message: message,
	}
}

// Subscribe handles POST /subscribe
// Registers a pending subscriber and emails a confirmation link.
//
// @Summary Subscribe to the daily reflection
// @Description Registers the address and sends a confirmation email
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body SubscribeRequest true "Subscription request"
// @Success 202 {object} SubscriptionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /subscribe [post]
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"invalid subscription request",
			dto.ValidationErrors(err),
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	subscriber, err := h.service.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toSubscriptionResponse(subscriber,
		"confirmation email sent, the link is valid for 24 hours"))
}

// Confirm handles GET /confirm?token=
// Activates the pending subscription the token belongs to.
//
// @Summary Confirm a subscription
// @Description Activates the pending subscription matching the token
// @Tags subscriptions
// @Produce json
// @Param token query string true "Confirmation token from the email"
// @Success 200 {object} SubscriptionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /confirm [get]
func (h *SubscriptionHandler) Confirm(c *gin.Context) {
	subscriber, err := h.service.Confirm(c.Request.Context(), c.Query("token"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSubscriptionResponse(subscriber,
		"subscription confirmed, the next reflection is on its way"))
}

// Unsubscribe handles POST /unsubscribe
// Removes the address from the daily delivery.
//
// @Summary Unsubscribe from the daily reflection
// @Description Marks the subscriber unsubscribed and stops deliveries
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body UnsubscribeRequest true "Opt-out request"
// @Success 200 {object} SubscriptionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /unsubscribe [post]
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"invalid opt-out request",
			dto.ValidationErrors(err),
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	h.unsubscribe(c, req.Email, req.Token)
}

// UnsubscribeLink handles GET /unsubscribe?email=&token=
// It is the target of the opt-out link embedded in every reflection email,
// so it must work from a plain browser click without a request body.
//
// @Summary Unsubscribe via email link
// @Description One-click opt-out used by the link in reflection emails
// @Tags subscriptions
// @Produce json
// @Param email query string true "Subscriber address"
// @Param token query string true "Unsubscribe token from the email"
// @Success 200 {object} SubscriptionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /unsubscribe [get]
func (h *SubscriptionHandler) UnsubscribeLink(c *gin.Context) {
	h.unsubscribe(c, c.Query("email"), c.Query("token"))
}

func (h *SubscriptionHandler) unsubscribe(c *gin.Context, email, token string) {
	subscriber, err := h.service.Unsubscribe(c.Request.Context(), email, token)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSubscriptionResponse(subscriber,
		"you have been unsubscribed and will receive no further reflections"))
}

// RegisterSubscriptionRoutes registers the subscription lifecycle routes at
// the paths the signup page and the links in outgoing emails point to.
func (h *SubscriptionHandler) RegisterSubscriptionRoutes(rg *gin.RouterGroup) {
	rg.POST("/subscribe", h.Subscribe)
	rg.GET("/confirm", h.Confirm)
	rg.POST("/unsubscribe", h.Unsubscribe)
	rg.GET("/unsubscribe", h.UnsubscribeLink)
}
