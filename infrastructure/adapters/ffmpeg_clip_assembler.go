package adapters

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"generate-video-pipeline/application/ports/outbound"
)

type ffmpegClipAssembler struct {
	ContentFetcher
	logger outbound.LoggerPort
}

func NewFFmpegClipAssembler(contentFetcher ContentFetcher, logger outbound.LoggerPort) outbound.ClipAssemblerPort {
	return &ffmpegClipAssembler{
		ContentFetcher: contentFetcher,
		logger:         logger,
	}
}

// Assemble downloads the clips, writes an ffmpeg concat list in the given
// order and stitches them stream-copied into one local mp4. The downloads
// and the list file are cleaned up here; the output file belongs to the
// caller.
func (f *ffmpegClipAssembler) Assemble(ctx context.Context, clipURLs []string) (string, error) {
	clipFiles := make([]string, 0, len(clipURLs))
	defer func() {
		for _, name := range clipFiles {
			if err := os.Remove(name); err != nil {
				f.logger.Error(err, "Failed to remove downloaded clip")
			}
		}
	}()

	for _, url := range clipURLs {
		fileName, err := f.downloadClip(ctx, url)
		if err != nil {
			return "", err
		}
		clipFiles = append(clipFiles, fileName)
	}

	listFileName, err := f.writeConcatList(clipFiles)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(listFileName); err != nil {
			f.logger.Error(err, "Failed to remove clip list file")
		}
	}()

	outputFile := "/tmp/" + uuid.NewString() + ".mp4"
	cmd := exec.CommandContext(ctx, "ffmpeg", "-f", "concat", "-safe", "0", "-i", listFileName, "-c", "copy", outputFile)
	if err := cmd.Run(); err != nil {
		f.logger.Error(err, "Failed to concatenate clips")
		return "", err
	}

	return outputFile, nil
}

func (f *ffmpegClipAssembler) downloadClip(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		f.logger.Error(err, "Failed to create clip download request")
		return "", err
	}

	payload, status, err := f.FetchContent(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("clip download returned status %d", status)
	}

	fileName := "/tmp/" + uuid.NewString() + ".mp4"
	if err := os.WriteFile(fileName, payload, 0o644); err != nil {
		f.logger.Error(err, "Failed to write clip file")
		return "", err
	}
	return fileName, nil
}

func (f *ffmpegClipAssembler) writeConcatList(clipFiles []string) (string, error) {
	fileList, err := os.Create("/tmp/" + uuid.NewString())
	if err != nil {
		f.logger.Error(err, "Failed to create clip list file")
		return "", err
	}
	defer func() {
		if err := fileList.Close(); err != nil {
			f.logger.Error(err, "Failed to close clip list file")
		}
	}()

	writer := bufio.NewWriter(fileList)
	for _, name := range clipFiles {
		if _, err := writer.WriteString("file '" + name + "'\n"); err != nil {
			f.logger.Error(err, "Failed to write to clip list file")
			return "", err
		}
	}
	if err := writer.Flush(); err != nil {
		f.logger.Error(err, "Failed to flush clip list file")
		return "", err
	}

	return fileList.Name(), nil
}
