package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/domain"
)

type clipAssemblyService struct {
	logger    outbound.LoggerPort
	runs      outbound.RunRepositoryPort
	assembler outbound.ClipAssemblerPort
	blobs     outbound.BlobStorePort
}

func NewClipAssemblyService(
	logger outbound.LoggerPort,
	runs outbound.RunRepositoryPort,
	assembler outbound.ClipAssemblerPort,
	blobs outbound.BlobStorePort) inbound.ClipAssemblyPort {
	return &clipAssemblyService{
		logger:    logger,
		runs:      runs,
		assembler: assembler,
		blobs:     blobs,
	}
}

// AssembleFinalVideo concatenates the completed scene clips in scene order
// and publishes the result. Scenes without a completed clip block assembly
// unless force is set, in which case they are skipped and reported back.
func (s *clipAssemblyService) AssembleFinalVideo(ctx context.Context, runID string, force bool) (*inbound.AssembleResult, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	clipURLs := make([]string, 0, len(run.Scenes))
	var missing []int
	for i := range run.Scenes {
		clip, ok := run.SceneVideos[i]
		if !ok || clip.State != domain.ClipCompleted {
			missing = append(missing, i)
			continue
		}
		clipURLs = append(clipURLs, clip.VideoURL)
	}

	if len(clipURLs) == 0 {
		return nil, fmt.Errorf("%w: run %s has no completed clips to assemble", domain.ErrInvalidState, runID)
	}
	if len(missing) > 0 {
		if !force {
			return nil, fmt.Errorf("%w: scenes %v have no completed clip", domain.ErrInvalidState, missing)
		}
		s.logger.WarnWithFields("Assembling partial video", map[string]interface{}{
			"run_id":         runID,
			"missing_scenes": missing,
		})
	}

	localPath, err := s.assembler.Assemble(ctx, clipURLs)
	if err != nil {
		return nil, fmt.Errorf("%w: clip assembly: %v", domain.ErrGenerationFailed, err)
	}
	defer os.Remove(localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("user/%s/run/%s/final/%s.mp4", run.OwnerID, runID, uuid.NewString())
	videoURL, err := s.blobs.Upload(ctx, key, file, stat.Size())
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("Final video assembled", map[string]interface{}{
		"run_id":    runID,
		"video_url": videoURL,
		"clips":     len(clipURLs),
	})

	return &inbound.AssembleResult{VideoURL: videoURL, MissingScenes: missing}, nil
}
