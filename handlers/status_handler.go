package handlers

import (
	"net/http"

	"github.com/upb/research-mcp/services/routing"
	"github.com/upb/research-mcp/utils"
)

// StatusResponse describes the running server and its routing table
type StatusResponse struct {
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Tasks       map[string]string `json:"tasks"`
	Fallbacks   []string          `json:"fallbacks"`
}

// StatusHandler returns application status information
func StatusHandler(version, environment string, router *routing.TaskRouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks := make(map[string]string)
		for _, task := range router.AvailableTasks() {
			model, _ := router.ModelForTask(task)
			tasks[task] = model
		}

		_ = utils.WriteJSON(w, http.StatusOK, StatusResponse{
			Version:     version,
			Environment: environment,
			Tasks:       tasks,
			Fallbacks:   router.Fallbacks(),
		})
	}
}
