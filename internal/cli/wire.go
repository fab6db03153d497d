package cli

import (
	"time"

	docker "github.com/docker/docker/client"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/t3m8ch/checkrunner/internal/config"
	"github.com/t3m8ch/checkrunner/internal/eventsctl"
	"github.com/t3m8ch/checkrunner/internal/filesctl"
	"github.com/t3m8ch/checkrunner/internal/grading"
	"github.com/t3m8ch/checkrunner/internal/handler"
	"github.com/t3m8ch/checkrunner/internal/resolver"
	"github.com/t3m8ch/checkrunner/internal/sandbox"
)

const sandboxRetryDelay = 500 * time.Millisecond

func NewSandboxEngine(cfg *config.Config) (grading.Engine, error) {
	dockerClient, err := docker.NewClientWithOpts(docker.FromEnv, docker.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}

	manager := sandbox.NewRetryDecorator(
		sandbox.NewDockerManager(dockerClient),
		cfg.Sandbox.Retries,
		sandboxRetryDelay,
	)
	return grading.NewSandboxEngine(manager, grading.SandboxConfig{
		Image:   cfg.Sandbox.Image,
		Command: cfg.Sandbox.Command,
	}), nil
}

func getMinioClient(cfg *config.MinioConfig) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
}

func getRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func newRunner(cfg *config.Config, engine grading.Engine, cwd string, deps Deps) (*handler.Runner, func(), error) {
	cleanup := func() {}

	resolverOpts := []resolver.Option{
		resolver.WithTempDir(deps.TempDir),
		resolver.WithDownloadTimeout(cfg.DownloadTimeout),
		resolver.WithFetcher("http", resolver.NewHTTPFetcher(nil, cfg.MaxReferenceBytes)),
		resolver.WithFetcher("https", resolver.NewHTTPFetcher(nil, cfg.MaxReferenceBytes)),
	}
	publisherOpts := []handler.PublisherOption{
		handler.WithTempDir(deps.TempDir),
	}

	if cfg.Minio != nil {
		minioClient, err := getMinioClient(cfg.Minio)
		if err != nil {
			return nil, cleanup, err
		}
		files := filesctl.NewMinioManager(minioClient)
		resolverOpts = append(resolverOpts, resolver.WithFetcher("s3", resolver.NewObjectFetcher(files, cfg.MaxReferenceBytes)))
		if cfg.ArtifactBucket != "" {
			publisherOpts = append(publisherOpts, handler.WithArtifactMirror(files, cfg.ArtifactBucket))
		}
	}

	if cfg.Redis != nil {
		redisClient := getRedisClient(cfg.Redis)
		cleanup = func() {
			if err := redisClient.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing redis client")
			}
		}
		publisherOpts = append(publisherOpts, handler.WithEvents(eventsctl.NewRedisPublisher(redisClient)))
	}

	return &handler.Runner{
		Engine:    engine,
		Resolver:  resolver.New(engine, cwd, resolverOpts...),
		Publisher: handler.NewPublisher(deps.Stdout, publisherOpts...),
		Out:       deps.Stdout,
	}, cleanup, nil
}
