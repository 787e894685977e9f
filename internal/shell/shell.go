// Package shell implements the device-side update shell: a blocking
// request/response loop over the USB command channel that serves
// diagnostics, device introspection, interactive and one-shot command
// execution, file retrieval, and firmware image retrieval.
//
// The loop is strictly lock-step. Exactly one response frame is written
// for every request frame read, and a command's data phase always
// completes before the next request is read.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/equinoxel/Sony-PMCA-RE/internal/deviceinfo"
	"github.com/equinoxel/Sony-PMCA-RE/internal/transport"
)

// Transport is the framed byte channel the shell session owns. Read and
// Write move exactly one fixed-size frame; the stream and bridge calls run
// a command's data phase and block until it is complete. Any error from
// these methods means the channel itself failed and ends the session.
type Transport interface {
	Read(p []byte) error
	Write(p []byte) error
	Bridge(in io.WriteCloser, out io.Reader) error
	StreamFrom(r io.Reader) error
	StreamBuffer(p []byte) error
}

// Process is one spawned subprocess as seen by the SHEL and EXEC handlers.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	Release() error
}

// Spawner starts a subprocess with piped stdout, and piped stdin when
// pipeStdin is set.
type Spawner interface {
	Spawn(argv []string, pipeStdin bool) (Process, error)
}

// SpawnerFunc adapts a function to the Spawner interface.
type SpawnerFunc func(argv []string, pipeStdin bool) (Process, error)

func (f SpawnerFunc) Spawn(argv []string, pipeStdin bool) (Process, error) {
	return f(argv, pipeStdin)
}

// InfoProvider supplies the device identity record for INFO.
type InfoProvider interface {
	Info() (deviceinfo.Record, error)
}

// BootImage is an open firmware image with an enumerable block set.
type BootImage interface {
	BlockCount() int
	ReadBlock(i int) ([]byte, error)
	Close() error
}

// ImageOpener opens the bootloader partition for BLDR.
type ImageOpener interface {
	OpenImage() (BootImage, error)
}

// ImageOpenerFunc adapts a function to the ImageOpener interface.
type ImageOpenerFunc func() (BootImage, error)

func (f ImageOpenerFunc) OpenImage() (BootImage, error) {
	return f()
}

// Options carries the session knobs that come from configuration.
type Options struct {
	// ShellBinary is invoked as "<bin> -i" for SHEL and "<bin> -c line"
	// for EXEC. Defaults to "sh".
	ShellBinary string
	Logger      *slog.Logger
}

// Shell is one command-channel session. It exclusively owns the transport
// for the lifetime of Run and keeps no state across requests beyond the
// reused read buffer.
type Shell struct {
	tr      Transport
	spawner Spawner
	info    InfoProvider
	images  ImageOpener
	logger  *slog.Logger

	shellBinary string

	// reqBuf holds one request frame, allocated once per session.
	reqBuf []byte
}

// New builds a session over tr. Nil collaborators are replaced with stubs
// that answer their commands with ENOSYS so the loop stays serviceable.
func New(tr Transport, spawner Spawner, info InfoProvider, images ImageOpener, opts Options) *Shell {
	if spawner == nil {
		spawner = unsupportedSpawner{}
	}
	if info == nil {
		info = unsupportedInfo{}
	}
	if images == nil {
		images = unsupportedImages{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bin := opts.ShellBinary
	if bin == "" {
		bin = "sh"
	}

	return &Shell{
		tr:          tr,
		spawner:     spawner,
		info:        info,
		images:      images,
		logger:      logger,
		shellBinary: bin,
		reqBuf:      make([]byte, RequestSize),
	}
}

// Run serves requests until the host sends EXIT or the transport fails.
// A transport failure is returned to the caller and ends the session; per-
// command failures are reported to the host in the response frame and the
// loop keeps serving. Context cancellation is honored between requests
// only, since the frame read is a blocking call.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.tr.Read(s.reqBuf); err != nil {
			return fmt.Errorf("read request frame: %w", err)
		}
		req, err := DecodeRequest(s.reqBuf)
		if err != nil {
			return err
		}

		cmd := ParseTag(req.Tag)
		s.logger.Info("request", "command", cmd.String())

		var handlerErr error
		switch cmd {
		case CommandTest:
			handlerErr = s.respond(ResultSuccess)
		case CommandInfo:
			handlerErr = s.handleInfo()
		case CommandShell:
			handlerErr = s.handleShell()
		case CommandExec:
			handlerErr = s.handleExec(req)
		case CommandPull:
			handlerErr = s.handlePull(req)
		case CommandBootloader:
			handlerErr = s.handleBootloader()
		case CommandExit:
			if err := s.respond(ResultSuccess); err != nil {
				return err
			}
			s.logger.Info("session closed by host")
			return nil
		case CommandUnknown:
			s.logger.Warn("unknown command tag", "tag", fmt.Sprintf("%q", req.Tag[:]))
			handlerErr = s.respond(ResultError)
		}
		if handlerErr != nil {
			return handlerErr
		}
	}
}

// respond writes the single response frame for the current request.
func (s *Shell) respond(result int32) error {
	if err := s.tr.Write(EncodeResponse(result)); err != nil {
		return fmt.Errorf("write response frame: %w", err)
	}
	return nil
}

// handleInfo answers with the provider's status, then, on success, waits
// for the host's empty acknowledgement read before sending the fixed-size
// identity record. On failure no record follows the response.
func (s *Shell) handleInfo() error {
	rec, err := s.info.Info()
	if err != nil {
		s.logger.Warn("device info unavailable", "error", err.Error())
		return s.respond(wireResult(err))
	}
	if err := s.respond(ResultSuccess); err != nil {
		return err
	}
	if err := s.tr.Read(nil); err != nil {
		return fmt.Errorf("read info acknowledgement: %w", err)
	}
	block, err := rec.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal info record: %w", err)
	}
	if err := s.tr.Write(block); err != nil {
		return fmt.Errorf("write info record: %w", err)
	}
	return nil
}

// handleShell spawns an interactive shell and bridges its stdio against
// the channel until either side closes.
func (s *Shell) handleShell() error {
	proc, err := s.spawner.Spawn([]string{s.shellBinary, "-i"}, true)
	if err != nil {
		s.logger.Warn("spawn interactive shell failed", "error", err.Error())
		return s.respond(wireResult(err))
	}
	if err := s.respond(ResultSuccess); err != nil {
		_ = proc.Release()
		return err
	}

	bridgeErr := s.tr.Bridge(proc.Stdin(), proc.Stdout())
	if err := proc.Release(); err != nil {
		s.logger.Warn("release shell process", "error", err.Error())
	}
	if bridgeErr != nil {
		return fmt.Errorf("bridge interactive shell: %w", bridgeErr)
	}
	return nil
}

// handleExec runs one shell command line from the payload and streams its
// stdout to the host. The process receives no interactive input.
func (s *Shell) handleExec(req Request) error {
	line, err := req.PayloadString()
	if err != nil {
		s.logger.Warn("exec payload rejected", "error", err.Error())
		return s.respond(ResultError)
	}

	proc, err := s.spawner.Spawn([]string{s.shellBinary, "-c", line}, false)
	if err != nil {
		s.logger.Warn("spawn command failed", "error", err.Error())
		return s.respond(wireResult(err))
	}
	if err := s.respond(ResultSuccess); err != nil {
		_ = proc.Release()
		return err
	}

	bridgeErr := s.tr.Bridge(nil, proc.Stdout())
	if err := proc.Release(); err != nil {
		s.logger.Warn("release command process", "error", err.Error())
	}
	if bridgeErr != nil {
		return fmt.Errorf("stream command output: %w", bridgeErr)
	}
	return nil
}

// handlePull opens the requested path read-only and streams it to EOF. An
// open failure surfaces the platform error code in the response and skips
// the data phase.
func (s *Shell) handlePull(req Request) error {
	path, err := req.PayloadString()
	if err != nil {
		s.logger.Warn("pull payload rejected", "error", err.Error())
		return s.respond(ResultError)
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("pull open failed", "path", path, "error", err.Error())
		return s.respond(wireResult(err))
	}
	if err := s.respond(ResultSuccess); err != nil {
		_ = f.Close()
		return err
	}

	streamErr := s.tr.StreamFrom(f)
	_ = f.Close()
	if errors.Is(streamErr, transport.ErrSource) {
		s.logger.Warn("pull stream ended early", "path", path, "error", streamErr.Error())
		return nil
	}
	if streamErr != nil {
		return fmt.Errorf("stream file %q: %w", path, streamErr)
	}
	return nil
}

// handleBootloader reports the firmware block count in the response frame,
// then streams every block in enumeration order, one sized buffer each.
//
// The result field carries a non-negative count here, not a status code;
// the wire has no distinct failure signal, so an unopenable partition is
// reported as zero blocks and is indistinguishable from an empty image.
// This asymmetry is inherited from the protocol and must not be "fixed"
// unilaterally, since hosts parse the field as a count.
func (s *Shell) handleBootloader() error {
	img, err := s.images.OpenImage()
	if err != nil {
		s.logger.Warn("open boot image failed", "error", err.Error())
		return s.respond(0)
	}
	defer func() {
		if err := img.Close(); err != nil {
			s.logger.Warn("close boot image", "error", err.Error())
		}
	}()

	count := img.BlockCount()
	if err := s.respond(int32(count)); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		block, err := img.ReadBlock(i)
		if err != nil {
			// The count is already on the wire; keep the block sequence
			// intact with an empty record and report the failure locally.
			s.logger.Warn("read boot block failed", "block", i, "error", err.Error())
			block = nil
		}
		if err := s.tr.StreamBuffer(block); err != nil {
			return fmt.Errorf("stream boot block %d: %w", i, err)
		}
	}
	return nil
}

// wireResult maps an operation failure to the negative result code
// convention: the platform errno when one is present, the generic error
// sentinel otherwise.
func wireResult(err error) int32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return -int32(errno)
	}
	return ResultError
}

type unsupportedSpawner struct{}

func (unsupportedSpawner) Spawn([]string, bool) (Process, error) {
	return nil, syscall.ENOSYS
}

type unsupportedInfo struct{}

func (unsupportedInfo) Info() (deviceinfo.Record, error) {
	return deviceinfo.Record{}, syscall.ENOSYS
}

type unsupportedImages struct{}

func (unsupportedImages) OpenImage() (BootImage, error) {
	return nil, syscall.ENOSYS
}
