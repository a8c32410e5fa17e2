package handlers

import (
	"net/http"

	"github.com/TWRT/sprint-manager/internal/api/response"
)

func Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "200"})
}
