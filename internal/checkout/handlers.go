package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/common"
)

// Handler exposes the settlement endpoint.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

// Create handles POST /api/v1/checkout.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "malformed request body", nil)
		return
	}
	if err := in.Validate(); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "request validation failed", validationDetails(err))
		return
	}

	out, err := h.Svc.Settle(r.Context(), userID, in)
	if err != nil {
		if !common.IsAppError(err) {
			h.Log.Error().Err(err).Str("user_id", userID).Msg("settlement failed")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settlement failed", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, out)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
