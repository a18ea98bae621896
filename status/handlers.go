package status

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gokernel/errors"
	"github.com/kbukum/gokernel/observability"
	"github.com/kbukum/gokernel/providers"
	"github.com/kbukum/gokernel/version"
)

// ProviderView is the JSON form of one registry entry.
type ProviderView struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	State       providers.State `json:"state"`
}

func toView(st providers.Status) ProviderView {
	return ProviderView{Name: st.Name, DisplayName: st.DisplayName, State: st.State}
}

func (s *Server) listProviders(c *gin.Context) {
	snapshot := s.registry.Snapshot()
	views := make([]ProviderView, 0, len(snapshot))
	for _, st := range snapshot {
		views = append(views, toView(st))
	}
	c.JSON(http.StatusOK, gin.H{"providers": views})
}

func (s *Server) getProvider(c *gin.Context) {
	name := c.Param("name")
	for _, st := range s.registry.Snapshot() {
		if st.Name == name {
			c.JSON(http.StatusOK, toView(st))
			return
		}
	}
	appErr := errors.ProviderNotFound(name)
	c.JSON(http.StatusNotFound, appErr.ToResponse())
}

// health maps provider states onto component health. Deferred and disposed
// providers are idle by their own predicates and count as up; a failed
// provider degrades the kernel.
func (s *Server) health(c *gin.Context) {
	sh := observability.NewServiceHealth(s.service, s.version)
	for _, st := range s.registry.Snapshot() {
		sh.AddComponent(observability.Health{
			Name:    st.Name,
			Status:  healthOf(st.State),
			Message: st.State.String(),
		})
	}
	c.JSON(sh.HTTPStatus(), gin.H{
		"service":    sh.Service,
		"version":    sh.Version,
		"status":     sh.Status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": sh.Components,
	})
}

func healthOf(state providers.State) observability.HealthStatus {
	if state == providers.StateFailed {
		return observability.HealthStatusDegraded
	}
	return observability.HealthStatusUp
}

func versionInfo(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
