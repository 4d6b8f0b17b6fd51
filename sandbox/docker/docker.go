/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package docker provisions sandboxes as local Docker containers.
package docker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"chainguard.dev/maige/sandbox"
	"github.com/chainguard-dev/clog"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkDir is the working directory of every command.
const DefaultWorkDir = "/home/user"

// api is the subset of the Docker client the provider uses.
type api interface {
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
}

// Provider creates one container per sandbox.
type Provider struct {
	client  api
	workDir string
	env     []string
}

var _ sandbox.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithWorkDir overrides DefaultWorkDir.
func WithWorkDir(dir string) Option {
	return func(p *Provider) { p.workDir = dir }
}

// WithEnv sets environment variables ("K=V") in every container.
func WithEnv(env ...string) Option {
	return func(p *Provider) { p.env = append(p.env, env...) }
}

// New connects to the Docker daemon configured in the environment.
func New(opts ...Option) (*Provider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return newProvider(cli, opts...), nil
}

func newProvider(c api, opts ...Option) *Provider {
	p := &Provider{client: c, workDir: DefaultWorkDir}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision starts a container from the template image, pulling it first
// when it is not present.
func (p *Provider) Provision(ctx context.Context, template string, onLine sandbox.LineFunc) (sandbox.Sandbox, error) {
	if err := p.ensureImage(ctx, template); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	resp, err := p.client.ContainerCreate(ctx, &container.Config{
		Image:      template,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: p.workDir,
		Env:        p.env,
		Labels: map[string]string{
			"sandbox-id": id,
			"managed-by": "maige",
		},
	}, &container.HostConfig{}, nil, nil, "maige-sandbox-"+id[:8])
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}

	sb := &Sandbox{client: p.client, id: id, containerID: resp.ID, workDir: p.workDir, onLine: onLine}
	if err := p.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		sb.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("starting container: %w", err)
	}
	clog.FromContext(ctx).With("sandbox", id, "container", resp.ID, "template", template).Info("Provisioned sandbox")
	return sb, nil
}

func (p *Provider) ensureImage(ctx context.Context, ref string) error {
	images, err := p.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	for _, img := range images {
		if slices.Contains(img.RepoTags, ref) {
			return nil
		}
	}

	rc, err := p.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling %s: %w", ref, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pulling %s: %w", ref, err)
	}
	return nil
}

// Sandbox is a running container.
type Sandbox struct {
	client      api
	id          string
	containerID string
	workDir     string
	onLine      sandbox.LineFunc

	closeOnce sync.Once
	closeErr  error
}

var _ sandbox.Sandbox = (*Sandbox)(nil)

func (s *Sandbox) ID() string { return s.id }

func (s *Sandbox) Start(ctx context.Context, cmd string) (sandbox.Process, error) {
	exec, err := s.client.ContainerExecCreate(ctx, s.containerID, container.ExecOptions{
		Cmd:          []string{"sh", "-c", cmd},
		WorkingDir:   s.workDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating exec: %w", err)
	}
	hijacked, err := s.client.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attaching exec: %w", err)
	}

	p := &process{
		client:  s.client,
		execID:  exec.ID,
		done:    make(chan struct{}),
		release: sync.OnceFunc(hijacked.Close),
	}
	go func() {
		defer close(p.done)
		defer p.release()
		p.messages, p.copyErr = collect(hijacked.Reader, s.onLine)
	}()
	return p, nil
}

// Close stops and removes the container.
func (s *Sandbox) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		timeout := 5
		if err := s.client.ContainerStop(ctx, s.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
			clog.FromContext(ctx).With("sandbox", s.id, "error", err).Warn("Could not stop sandbox container")
		}
		if err := s.client.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true}); err != nil {
			s.closeErr = fmt.Errorf("removing container: %w", err)
			return
		}
		clog.FromContext(ctx).With("sandbox", s.id).Info("Released sandbox")
	})
	return s.closeErr
}

// Exit codes are polled this many times, this far apart, after the stream
// closes.
var (
	exitPolls        = 20
	exitPollInterval = 50 * time.Millisecond
)

type process struct {
	client api
	execID string
	// release closes the attached stream, ending collect.
	release func()

	done     chan struct{}
	messages []sandbox.Message
	copyErr  error
}

// Wait returns once the exec's output stream closes and its exit code is
// recorded. Cancelling ctx detaches from the stream.
func (p *process) Wait(ctx context.Context) (*sandbox.Output, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.release()
		return nil, ctx.Err()
	}
	if p.copyErr != nil {
		return nil, fmt.Errorf("reading output: %w", p.copyErr)
	}

	// The stream closes slightly before the exit code is recorded.
	for range exitPolls {
		inspect, err := p.client.ContainerExecInspect(ctx, p.execID)
		if err != nil {
			return nil, fmt.Errorf("inspecting exec: %w", err)
		}
		if !inspect.Running {
			return &sandbox.Output{Messages: p.messages, ExitCode: inspect.ExitCode}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(exitPollInterval):
		}
	}
	return nil, fmt.Errorf("exec %s still running after its output closed", p.execID)
}

// collect demultiplexes a Docker exec stream into lines, tagging stderr
// lines as errors. onLine, when set, sees each line as it is read.
func collect(r io.Reader, onLine sandbox.LineFunc) ([]sandbox.Message, error) {
	var (
		mu       sync.Mutex
		messages []sandbox.Message
		eg       errgroup.Group
	)
	pump := func(src io.Reader, isErr bool) func() error {
		return func() error {
			scanner := bufio.NewScanner(src)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for scanner.Scan() {
				m := sandbox.Message{Line: scanner.Text(), Error: isErr}
				mu.Lock()
				messages = append(messages, m)
				mu.Unlock()
				if onLine != nil {
					onLine(m)
				}
			}
			err := scanner.Err()
			// Drain so the demuxer never blocks on an overlong line.
			io.Copy(io.Discard, src)
			return err
		}
	}

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	eg.Go(pump(outR, false))
	eg.Go(pump(errR, true))

	_, err := stdcopy.StdCopy(outW, errW, r)
	outW.Close()
	errW.Close()
	if perr := eg.Wait(); err == nil && perr != nil && !errors.Is(perr, bufio.ErrTooLong) {
		err = perr
	}
	return messages, err
}
