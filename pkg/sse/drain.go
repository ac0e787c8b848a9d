package sse

import (
	"errors"
	"io"
)

// ChunkSize is the read size used by Drain.
const ChunkSize = 4096

// Drain reads src in ChunkSize reads, feeds every chunk to a fresh Collector
// and hands each fragment to sink in stream order. It returns nil once the
// "[DONE]" sentinel is seen or src reports io.EOF, whichever comes first.
//
// A trailing line without a terminating newline at EOF is never processed.
// Read errors and sink errors are returned as-is; Drain does not retry.
func Drain(src io.Reader, sink func(fragment string) error) error {
	c := NewCollector()
	buf := make([]byte, ChunkSize)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			for _, fragment := range c.Consume(buf[:n]) {
				if sinkErr := sink(fragment); sinkErr != nil {
					return sinkErr
				}
			}

			if c.Done() {
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
