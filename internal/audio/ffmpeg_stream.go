package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"deskscribe/internal/domain"
)

// ffmpegStream captures PCM audio from an ffmpeg subprocess and emits it as
// fixed-size AudioBuffer chunks, in capture order.
type ffmpegStream struct {
	buffers chan domain.AudioBuffer

	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	waitErr <-chan error

	format      domain.AudioFormat
	chunkFrames int
	log         *zap.Logger

	pumpDone chan struct{}
	quit     chan struct{}
	closed   atomic.Bool

	errMu     sync.Mutex
	streamErr error

	closeOnce sync.Once
	closeErr  error
}

// openFFmpegStream starts the capture subprocess and begins pumping buffers.
// It fails with a wrapped domain.ErrStreamCreation when ffmpeg cannot start
// or exits before capture settles.
func openFFmpegStream(
	ctx context.Context,
	command string,
	args []string,
	format domain.AudioFormat,
	chunkFrames int,
	log *zap.Logger,
) (*ffmpegStream, error) {
	if command == "" {
		command = "ffmpeg"
	}
	if chunkFrames < 64 {
		chunkFrames = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", domain.ErrStreamCreation, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStreamCreation, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// An immediate exit means the device or permission is gone.
	select {
	case err := <-waitErr:
		detail := bytes.TrimSpace(stderr.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %s", domain.ErrStreamCreation, err, detail)
		}
		return nil, fmt.Errorf("%w: process exited before capture started: %s", domain.ErrStreamCreation, detail)
	case <-time.After(250 * time.Millisecond):
	}

	s := &ffmpegStream{
		buffers:     make(chan domain.AudioBuffer, 16),
		stdout:      stdout,
		stderr:      &stderr,
		process:     cmd.Process,
		waitErr:     waitErr,
		format:      format,
		chunkFrames: chunkFrames,
		log:         log,
		pumpDone:    make(chan struct{}),
		quit:        make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

func (s *ffmpegStream) Buffers() <-chan domain.AudioBuffer {
	return s.buffers
}

// Wait blocks until delivery stops and reports why. A nil result means the
// stream was closed deliberately.
func (s *ffmpegStream) Wait() error {
	<-s.pumpDone
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.streamErr
}

func (s *ffmpegStream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.streamErr == nil {
		s.streamErr = err
	}
}

// pump reads whole chunks from the subprocess and hands each off as an
// immutable buffer. Trailing bytes that do not fill a whole frame are
// dropped with a warning rather than surfaced as a fatal error.
func (s *ffmpegStream) pump() {
	defer close(s.pumpDone)
	defer close(s.buffers)

	bytesPerFrame := s.format.BytesPerFrame()
	chunkBytes := s.chunkFrames * bytesPerFrame
	buf := make([]byte, chunkBytes)

	for {
		n, err := io.ReadFull(s.stdout, buf)
		if n > 0 {
			frames := n / bytesPerFrame
			if rem := n % bytesPerFrame; rem != 0 {
				s.log.Warn("dropping partial audio frame",
					zap.Int("bytes", rem),
					zap.Int("bytes_per_frame", bytesPerFrame))
			}
			if frames > 0 {
				data := make([]byte, frames*bytesPerFrame)
				copy(data, buf[:frames*bytesPerFrame])
				select {
				case s.buffers <- domain.AudioBuffer{Format: s.format, Frames: frames, Data: data}:
				case <-s.quit:
					return
				}
			}
		}
		if err != nil {
			// EOF after a deliberate Close is a clean shutdown; anything
			// else means the OS-side stream died underneath us.
			if !s.closed.Load() {
				s.setErr(fmt.Errorf("%w: capture ended unexpectedly: %v", domain.ErrStream, err))
			}
			return
		}
	}
}

// Close stops delivery and releases the subprocess. Idempotent.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.quit)
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.closeErr = normalizeExitErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.closeErr = normalizeExitErr(err)
			}
		}

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			if s.closeErr == nil {
				s.closeErr = err
			}
		}
		<-s.pumpDone

		if s.closeErr != nil && s.stderr.Len() > 0 {
			s.closeErr = fmt.Errorf("%w: %s", s.closeErr, bytes.TrimSpace(s.stderr.Bytes()))
		}
	})
	return s.closeErr
}

// normalizeExitErr drops the expected nonzero status from an interrupted
// capture process.
func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func baseFFmpegArgs(inputDevice string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "pulse",
		"-i", inputDevice,
	}
}

func outputFFmpegArgs(format domain.AudioFormat) []string {
	return []string{
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.Itoa(format.SampleRate),
		"-f", string(format.Encoding),
		"-",
	}
}
