package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	docker "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

type DockerManager struct {
	dockerClient *docker.Client
}

func NewDockerManager(dockerClient *docker.Client) *DockerManager {
	return &DockerManager{dockerClient}
}

func (m *DockerManager) CreateSandbox(ctx context.Context, spec Spec) (SandboxID, error) {
	binds := make([]string, 0, len(spec.Mounts))
	for _, mount := range spec.Mounts {
		binds = append(binds, fmt.Sprintf("%s:%s:ro", mount.Source, mount.Target))
	}

	resp, err := m.dockerClient.ContainerCreate(
		ctx,
		&container.Config{
			AttachStdout: true,
			AttachStderr: true,
			Image:        spec.Image,
			Cmd:          spec.Cmd,
			Env:          spec.Env,
			WorkingDir:   spec.WorkDir,
		},
		&container.HostConfig{
			NetworkMode: "none",
			Binds:       binds,
			Tmpfs: map[string]string{
				"/tmp": "rw,exec,nosuid,size=65536k",
			},
		},
		nil,
		nil,
		"",
	)
	if err != nil {
		return "", err
	}

	return resp.ID, nil
}

func (m *DockerManager) StartSandbox(ctx context.Context, id SandboxID) error {
	return m.dockerClient.ContainerStart(ctx, id, container.StartOptions{})
}

func (m *DockerManager) RemoveSandbox(ctx context.Context, id SandboxID) error {
	return m.dockerClient.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

func (m *DockerManager) CopyFileToSandbox(ctx context.Context, id SandboxID, path string, mode int64, data []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name: strings.TrimPrefix(path, "/"),
		Mode: mode,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	return m.dockerClient.CopyToContainer(
		ctx,
		id,
		"/",
		&buf,
		container.CopyToContainerOptions{},
	)
}

func (m *DockerManager) LoadFileFromSandbox(ctx context.Context, id SandboxID, path string) ([]byte, error) {
	reader, _, err := m.dockerClient.CopyFromContainer(ctx, id, path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	tarReader := tar.NewReader(reader)
	if _, err := tarReader.Next(); err != nil {
		return nil, fmt.Errorf("read archive of %s: %w", path, err)
	}
	return io.ReadAll(tarReader)
}

func (m *DockerManager) WaitSandbox(ctx context.Context, id SandboxID) (StatusCode, error) {
	statusCh, errCh := m.dockerClient.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return -1, err
	case status := <-statusCh:
		if status.Error != nil {
			return -1, fmt.Errorf("wait sandbox %s: %s", id, status.Error.Message)
		}
		return status.StatusCode, nil
	}
}

func (m *DockerManager) ReadLogsFromSandbox(ctx context.Context, id SandboxID) (string, error) {
	reader, err := m.dockerClient.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", err
	}
	defer reader.Close()

	// Non-TTY containers multiplex stdout and stderr behind 8-byte frame headers.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return "", fmt.Errorf("failed to demultiplex logs: %w", err)
	}

	return buf.String(), nil
}
