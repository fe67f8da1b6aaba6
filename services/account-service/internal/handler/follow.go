package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/payload"
	"github.com/vasapolrittideah/articles-feed-api/shared/validation"
)

func (h *accountHTTPHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "id")
	if _, err := bson.ObjectIDFromHex(targetID); err != nil {
		h.writeError(w, r, "toggle_follow", validation.Errors{{Param: "id", Msg: "Invalid ID"}})
		return
	}

	user, err := h.followUsecase.ToggleFollow(r.Context(), userID, targetID)
	if err != nil {
		h.writeError(w, r, "toggle_follow", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(user *model.User) payload.UserResponse {
	return payload.UserResponse{
		ID:              user.ID.Hex(),
		UUID:            user.UUID,
		ProfileResponse: toProfileResponse(user),
		Followers:       toEdgeResponses(user.Followers),
		Following:       toEdgeResponses(user.Following),
	}
}

func toEdgeResponses(edges []model.FollowEdge) []payload.FollowEdgeResponse {
	out := make([]payload.FollowEdgeResponse, 0, len(edges))
	for _, e := range edges {
		out = append(out, payload.FollowEdgeResponse{User: e.User.Hex()})
	}
	return out
}
