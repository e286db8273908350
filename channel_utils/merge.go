package channel_utils

import (
	"sync"

	"generate-video-pipeline/application/ports/outbound"
)

// MergeChannels fans the given channels into one, closing the merged channel
// once every input is drained. Forwarding runs on the shared worker pool.
func MergeChannels[T any](workerPool outbound.TaskDispatcher, channels ...<-chan T) (<-chan T, error) {
	merged := make(chan T)
	aborted := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(len(channels))
	for _, c := range channels {
		ch := c
		err := workerPool.Submit(func() {
			defer wg.Done()
			for val := range ch {
				select {
				case merged <- val:
				case <-aborted:
					// Nobody reads merged anymore; keep draining ch so
					// its writers never block.
				}
			}
		})
		if err != nil {
			wg.Done()
			close(aborted)
			return nil, err
		}
	}

	err := workerPool.Submit(func() {
		wg.Wait()
		close(merged)
	})
	if err != nil {
		close(aborted)
		return nil, err
	}

	return merged, nil
}
