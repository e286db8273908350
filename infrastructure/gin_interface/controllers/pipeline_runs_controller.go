package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/domain"
	"generate-video-pipeline/infrastructure/gin_interface/dto"
	"generate-video-pipeline/middleware"
)

type PipelineRunsController interface {
	RegisterRoutes(g *gin.Engine)
}

type pipelineRunsController struct {
	logger       outbound.LoggerPort
	orchestrator inbound.PipelineOrchestratorPort
	assembly     inbound.ClipAssemblyPort
}

func NewPipelineRunsController(
	logger outbound.LoggerPort,
	orchestrator inbound.PipelineOrchestratorPort,
	assembly inbound.ClipAssemblyPort,
) PipelineRunsController {
	return &pipelineRunsController{
		logger:       logger,
		orchestrator: orchestrator,
		assembly:     assembly,
	}
}

func (p *pipelineRunsController) RegisterRoutes(g *gin.Engine) {
	g.POST("/runs", p.CreateRun)
	g.GET("/runs", p.FindRunByDraft)
	g.GET("/runs/:id", p.GetRun)
	g.DELETE("/runs/:id", p.DeleteRun)
	g.POST("/runs/:id/decompose", p.StartDecomposition)
	g.PATCH("/runs/:id/scenes/:index/keyframes/:position", p.UpdateKeyframe)
	g.POST("/runs/:id/scenes/:index/keyframes", p.GenerateKeyframes)
	g.POST("/runs/:id/keyframes", p.GenerateAllKeyframes)
	g.POST("/runs/:id/scenes/:index/video", p.GenerateSceneVideo)
	g.POST("/runs/:id/videos", p.GenerateAllVideos)
	g.POST("/runs/:id/assemble", p.AssembleFinalVideo)
	g.GET("/runs/:id/events", middleware.SSEHeaders(), p.StreamRunEvents)
}

func (p *pipelineRunsController) CreateRun(c *gin.Context) {
	var req dto.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := p.orchestrator.CreateRun(c, inbound.CreateRunParams{
		DraftID:   req.DraftID,
		OwnerID:   c.GetString(middleware.ContextUserIDKey),
		Selection: toDomainSelection(req.Selection),
	})
	if err != nil {
		p.abortWithError(c, err)
		return
	}

	if req.Decompose {
		decomposed, err := p.orchestrator.StartDecomposition(c, run.ID)
		if err != nil {
			p.abortWithError(c, err)
			return
		}
		run = decomposed
	}

	c.JSON(http.StatusCreated, run)
}

func (p *pipelineRunsController) GetRun(c *gin.Context) {
	run, ok := p.loadOwnedRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) FindRunByDraft(c *gin.Context) {
	draftID := c.Query("draft_id")
	if draftID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "draft_id query parameter is required"})
		return
	}

	run, err := p.orchestrator.FindRunByDraft(c, draftID, c.GetString(middleware.ContextUserIDKey))
	if err != nil {
		p.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) DeleteRun(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}
	if err := p.orchestrator.DeleteRun(c, c.Param("id")); err != nil {
		p.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (p *pipelineRunsController) StartDecomposition(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}
	run, err := p.orchestrator.StartDecomposition(c, c.Param("id"))
	if err != nil {
		p.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) UpdateKeyframe(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}
	index, ok := p.sceneIndex(c)
	if !ok {
		return
	}

	position := domain.KeyframePosition(c.Param("position"))
	if position != domain.StartKeyframePosition && position != domain.EndKeyframePosition {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "keyframe position must be start or end"})
		return
	}

	var req dto.UpdateKeyframeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := inbound.UpdateKeyframeParams{Prompt: req.Prompt}
	if req.SelectedImages != nil {
		params.SelectedImages = make([]domain.WeightedImage, 0, len(req.SelectedImages))
		for _, img := range req.SelectedImages {
			params.SelectedImages = append(params.SelectedImages, domain.WeightedImage{URL: img.URL, Weight: img.Weight})
		}
	}

	run, err := p.orchestrator.UpdateKeyframe(c, c.Param("id"), index, position, params)
	if err != nil {
		p.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) GenerateKeyframes(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}
	index, ok := p.sceneIndex(c)
	if !ok {
		return
	}

	run, err := p.orchestrator.GenerateKeyframes(c, c.Param("id"), index)
	if err != nil {
		p.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) GenerateAllKeyframes(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}

	run, err := p.orchestrator.GenerateAllKeyframes(c, c.Param("id"))
	if run == nil {
		p.abortWithError(c, err)
		return
	}
	if err != nil {
		// Scene failures are isolated; the run body carries them per scene.
		p.logger.WarnWithFields("Some scenes failed keyframe generation", map[string]interface{}{
			"run_id": c.Param("id"),
			"error":  err.Error(),
		})
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) GenerateSceneVideo(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}
	index, ok := p.sceneIndex(c)
	if !ok {
		return
	}

	run, err := p.orchestrator.GenerateSceneVideo(c, c.Param("id"), index)
	if err != nil {
		p.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) GenerateAllVideos(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}

	run, err := p.orchestrator.GenerateAllVideos(c, c.Param("id"))
	if run == nil {
		p.abortWithError(c, err)
		return
	}
	if err != nil {
		p.logger.WarnWithFields("Some scenes failed clip synthesis", map[string]interface{}{
			"run_id": c.Param("id"),
			"error":  err.Error(),
		})
	}
	c.JSON(http.StatusOK, run)
}

func (p *pipelineRunsController) AssembleFinalVideo(c *gin.Context) {
	if _, ok := p.loadOwnedRun(c); !ok {
		return
	}

	var req dto.AssembleVideoRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := p.assembly.AssembleFinalVideo(c, c.Param("id"), req.Force)
	if err != nil {
		p.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AssembleVideoResponse{
		VideoURL:      result.VideoURL,
		MissingScenes: result.MissingScenes,
	})
}

// StreamRunEvents pushes run snapshots over SSE until the run reaches a
// terminal state or the client goes away.
func (p *pipelineRunsController) StreamRunEvents(c *gin.Context) {
	run, ok := p.loadOwnedRun(c)
	if !ok {
		return
	}

	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	c.SSEvent("run", run)
	c.Writer.Flush()

	for {
		select {
		case <-clientGone:
			return
		case <-ticker.C:
			current, err := p.orchestrator.GetRun(c, c.Param("id"))
			if err != nil {
				c.SSEvent("error", err.Error())
				c.Writer.Flush()
				return
			}
			c.SSEvent("run", current)
			c.Writer.Flush()
			if current.Status.IsTerminal() {
				return
			}
		}
	}
}

func (p *pipelineRunsController) loadOwnedRun(c *gin.Context) (*domain.PipelineRun, bool) {
	run, err := p.orchestrator.GetRun(c, c.Param("id"))
	if err != nil {
		p.abortWithError(c, err)
		return nil, false
	}
	if run.OwnerID != c.GetString(middleware.ContextUserIDKey) {
		// Hide other users' runs entirely.
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	return run, true
}

func (p *pipelineRunsController) sceneIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "scene index must be an integer"})
		return 0, false
	}
	return index, true
}

func (p *pipelineRunsController) abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusForError(err), gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidSceneIndex):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrSubmissionRejected),
		errors.Is(err, domain.ErrProviderFailure),
		errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toDomainSelection(req dto.RunSelectionRequest) domain.RunSelection {
	selection := domain.RunSelection{
		ReferenceTexts: req.ReferenceTexts,
	}
	if req.CharacterImage != nil {
		selection.CharacterImage = &domain.ReferenceImage{
			URL:    req.CharacterImage.URL,
			Type:   domain.CharacterReferenceType,
			Weight: req.CharacterImage.Weight,
			Prompt: req.CharacterImage.Prompt,
		}
	}
	for _, img := range req.ReferenceImages {
		selection.ReferenceImages = append(selection.ReferenceImages, domain.ReferenceImage{
			URL:    img.URL,
			Type:   domain.PlainReferenceType,
			Weight: img.Weight,
			Prompt: img.Prompt,
		})
	}
	return selection
}
