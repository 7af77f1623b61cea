package http

import (
	"net/http"

	"github.com/benxgao/certifai-gateway/internal/gateway/marketing"
	"github.com/benxgao/certifai-gateway/pkg/httpx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
)

// MarketingHandler serves POST /v1/marketing/subscribe. The marketing list
// is a non-critical integration: the endpoint always answers 200 and
// reports success or failure in the body, never as an HTTP error.
type MarketingHandler struct {
	Marketing *marketing.Client
}

type subscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

type subscribeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *MarketingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httpx.BindAndValidate[subscribeRequest](w, r)
	if err != nil {
		return
	}

	if err := h.Marketing.Subscribe(ctx, req.Email, req.Name); err != nil {
		slogx.FromContext(ctx).Warn("marketing subscribe failed", "error", err)
		httpx.WriteJSON(w, http.StatusOK, subscribeResponse{
			Error: "subscription could not be completed",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, subscribeResponse{Success: true})
}
