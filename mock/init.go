package mock_backend

import (
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"generate-video-pipeline/application/ports/outbound"
)

// Init mounts the fake generation backends. Enable with MOCK_GENERATORS=true
// and point IMAGE_SERVICE_URL / VIDEO_SERVICE_URL back at this server.
func Init(g *gin.Engine, workerPool outbound.TaskDispatcher, logger outbound.LoggerPort) {
	stageDelay := 200 * time.Millisecond
	if raw := os.Getenv("MOCK_JOB_DELAY_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			stageDelay = time.Duration(ms) * time.Millisecond
		}
	}

	controller := NewMockJobsController(logger, workerPool, stageDelay)
	controller.RegisterRoutes(g)
	logger.Info("Mock generation backends mounted")
}
