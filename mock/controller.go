package mock_backend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/domain"
)

type submitImageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Count  int    `json:"n"`
}

type submitVideoRequest struct {
	Prompt        string `json:"prompt"`
	FirstFrameURL string `json:"first_frame_url" binding:"required"`
	LastFrameURL  string `json:"last_frame_url" binding:"required"`
}

// MockJobsController emulates the asynchronous generation backends with the
// queued, processing, terminal lifecycle the real services expose.
type MockJobsController interface {
	RegisterRoutes(g *gin.Engine)
}

type mockJobsController struct {
	logger     outbound.LoggerPort
	workerPool outbound.TaskDispatcher
	store      *jobStore
	stageDelay time.Duration
}

func NewMockJobsController(logger outbound.LoggerPort, workerPool outbound.TaskDispatcher, stageDelay time.Duration) MockJobsController {
	return &mockJobsController{
		logger:     logger,
		workerPool: workerPool,
		store:      newJobStore(),
		stageDelay: stageDelay,
	}
}

func (m *mockJobsController) RegisterRoutes(g *gin.Engine) {
	g.POST("/v1/images/jobs", m.SubmitImageJob)
	g.GET("/v1/images/jobs/:id", m.GetJob)
	g.DELETE("/v1/images/jobs/:id", m.CancelJob)
	g.POST("/v1/videos/jobs", m.SubmitVideoJob)
	g.GET("/v1/videos/jobs/:id", m.GetJob)
}

func (m *mockJobsController) SubmitImageJob(c *gin.Context) {
	var req submitImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	job := &jobRecord{ID: uuid.NewString(), State: string(domain.JobQueued)}
	m.store.put(job)

	if err := m.schedule(job.ID, func(j *jobRecord) {
		for i := 0; i < count; i++ {
			j.ImageURLs = append(j.ImageURLs, fmt.Sprintf("https://mock-assets.local/images/%s.png", uuid.NewString()))
		}
	}); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (m *mockJobsController) SubmitVideoJob(c *gin.Context) {
	var req submitVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &jobRecord{ID: uuid.NewString(), State: string(domain.JobQueued)}
	m.store.put(job)

	if err := m.schedule(job.ID, func(j *jobRecord) {
		j.VideoURL = fmt.Sprintf("https://mock-assets.local/videos/%s.mp4", uuid.NewString())
		j.Duration = 5
	}); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (m *mockJobsController) GetJob(c *gin.Context) {
	job, ok := m.store.get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (m *mockJobsController) CancelJob(c *gin.Context) {
	id := c.Param("id")
	if _, ok := m.store.get(id); !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	m.store.advance(id, domain.JobFailed, func(j *jobRecord) {
		j.Reason = "cancelled"
	})
	c.Status(http.StatusNoContent)
}

func (m *mockJobsController) schedule(jobID string, complete func(*jobRecord)) error {
	return m.workerPool.Submit(func() {
		time.Sleep(m.stageDelay)
		m.store.advance(jobID, domain.JobProcessing, nil)
		time.Sleep(m.stageDelay)
		m.store.advance(jobID, domain.JobCompleted, complete)
	})
}
