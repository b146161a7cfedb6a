package controller

import (
	"errors"
	"net/http"
	"strconv"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/internal/middleware"
)

// respondServiceError writes the HTTP form of an error returned by a service.
// Unclassified errors are logged and reported as 500.
func respondServiceError(c *gin.Context, err error, action string) {
	if verr, ok := service.AsValidationError(err); ok {
		apperrors.RespondWithValidationError(c, map[string]string{verr.Field: verr.Message})
		return
	}

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Product is not in the cart")
	case errors.Is(err, service.ErrFavoriteNotFound):
		apperrors.NotFound(c, apperrors.FavoriteNotFound, "Product is not in favorites")
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
	case errors.Is(err, service.ErrUserNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
	case errors.Is(err, service.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CartEmpty, "Cart is empty")
	case errors.Is(err, service.ErrInvalidTransition):
		apperrors.Conflict(c, apperrors.OrderInvalidTransition, "Order is already delivered or canceled")
	case errors.Is(err, service.ErrEmailAlreadyExists):
		apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "Email is already registered")
	case errors.Is(err, service.ErrUsernameAlreadyExists):
		apperrors.Conflict(c, apperrors.AuthUsernameExists, "Username is already taken")
	case errors.Is(err, service.ErrInvalidCredentials):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid email or password")
	default:
		middleware.GetLoggerFromContext(c).Error("Request failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
	}
}

// respondBindError reports request body problems, per field when the
// validator produced them.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[snakeCase(fe.Field())] = validationMessage(fe)
		}
		apperrors.RespondWithValidationError(c, fields)
		return
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Request body is not valid JSON")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is not a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// snakeCase turns a Go field name such as ProductID into product_id.
func snakeCase(name string) string {
	runes := []rune(name)
	out := make([]rune, 0, len(runes)+4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				out = append(out, '_')
			}
			r = unicode.ToLower(r)
		}
		out = append(out, r)
	}
	return string(out)
}

// parseIDParam reads a positive integer path parameter, answering 400 when it
// is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID parameter", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// requireCartOwner fetches the owner set by the identity resolver.
func requireCartOwner(c *gin.Context) (model.CartOwner, bool) {
	owner, ok := middleware.GetCartOwner(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Error("Cart owner missing from request context", model.ErrInvalidOwner, map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.InternalError(c, "")
		return model.CartOwner{}, false
	}
	return owner, true
}
