// Copyright 2026 Boring Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/boringdata/boring-ui/internal/appconfig"
	"github.com/boringdata/boring-ui/internal/artifacts"
	"github.com/boringdata/boring-ui/internal/audit"
	"github.com/boringdata/boring-ui/internal/auth"
	"github.com/boringdata/boring-ui/internal/database"
	"github.com/boringdata/boring-ui/internal/provisioning"
	"github.com/boringdata/boring-ui/internal/proxy"
	"github.com/boringdata/boring-ui/internal/sandbox"
	"github.com/boringdata/boring-ui/internal/sharing"
	"github.com/boringdata/boring-ui/internal/utils"
	"github.com/boringdata/boring-ui/pkg/frontend"
	"github.com/boringdata/boring-ui/pkg/metrics"
)

// Secret environment variable names. Secrets never have flags so they can
// never show up in process listings.
const (
	envSessionSecret = "SESSION_SIGNING_SECRET"
	envSpriteBearer  = "SPRITE_BEARER_TOKEN"
	envAuthSecret    = "AUTH_SHARED_SECRET"
)

const (
	minSessionSecretBytes = 32
	minSpriteBearerBytes  = 16
)

type ControlPlaneOpts struct {
	port int

	useMemory  bool
	cosmosName string
	cosmosURL  string

	artifactsDir       string
	artifactsBlobURL   string
	artifactsContainer string

	appRegistryFile string
	defaultAppID    string

	identityJWKSURL  string
	identityAudience string
	sessionIssuer    string
	insecureCookies  bool
	trustRequestID   bool

	environment        string
	spriteHostTemplate string
	spriteCLI          string
	streamLimit        int
	sweepInterval      time.Duration
	pollInterval       time.Duration
}

func NewRootCmd() *cobra.Command {
	opts := &ControlPlaneOpts{}
	rootCmd := &cobra.Command{
		Use:   "controlplane",
		Args:  cobra.NoArgs,
		Short: "Serve the workspace control plane",
		Long: `Serve the workspace control plane

	This command runs the control plane: the authenticated HTTP API, the
	workspace proxy, the provisioning worker, and the stale-job sweeper.

	# Run locally against the in-memory store and a local artifact directory
	SESSION_SIGNING_SECRET=... SPRITE_BEARER_TOKEN=... AUTH_SHARED_SECRET=... \
		./controlplane --use-memory --artifacts-dir ./artifacts \
		--app-registry ./apps.json --insecure-cookies
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.Run()
		},
	}

	rootCmd.Flags().IntVar(&opts.port, "port", 8443, "port to listen on")

	rootCmd.Flags().BoolVar(&opts.useMemory, "use-memory", false, "use the in-memory store instead of Cosmos DB")
	rootCmd.Flags().StringVar(&opts.cosmosName, "cosmos-name", os.Getenv("DB_NAME"), "Cosmos database name")
	rootCmd.Flags().StringVar(&opts.cosmosURL, "cosmos-url", os.Getenv("DB_URL"), "Cosmos database url")

	rootCmd.Flags().StringVar(&opts.artifactsDir, "artifacts-dir", envOr("ARTIFACTS_DIR", "artifacts"), "root directory of the filesystem artifact store")
	rootCmd.Flags().StringVar(&opts.artifactsBlobURL, "artifacts-blob-url", os.Getenv("ARTIFACTS_BLOB_URL"), "Azure Blob service url of the artifact store")
	rootCmd.Flags().StringVar(&opts.artifactsContainer, "artifacts-container", "releases", "Azure Blob container holding release artifacts")

	rootCmd.Flags().StringVar(&opts.appRegistryFile, "app-registry", os.Getenv("APP_REGISTRY_FILE"), "path to the JSON host-to-app registration file")
	rootCmd.Flags().StringVar(&opts.defaultAppID, "default-app-id", os.Getenv("DEFAULT_APP_ID"), "app served for hosts without a registration")

	rootCmd.Flags().StringVar(&opts.identityJWKSURL, "identity-jwks-url", os.Getenv("IDENTITY_JWKS_URL"), "JWKS endpoint of the identity provider; unset verifies with "+envAuthSecret)
	rootCmd.Flags().StringVar(&opts.identityAudience, "identity-audience", "boring-ui", "audience required of identity tokens")
	rootCmd.Flags().StringVar(&opts.sessionIssuer, "session-issuer", "boring-ui-control-plane", "issuer stamped into session tokens")
	rootCmd.Flags().BoolVar(&opts.insecureCookies, "insecure-cookies", false, "drop the Secure cookie attribute for local development over plain HTTP")
	rootCmd.Flags().BoolVar(&opts.trustRequestID, "trust-request-id", false, "honor inbound X-Request-Id headers; enable only behind a trusted edge")

	rootCmd.Flags().StringVar(&opts.environment, "environment", envOr("ENVIRONMENT", "dev"), "deployment environment, part of every sandbox name")
	rootCmd.Flags().StringVar(&opts.spriteHostTemplate, "sprite-host-template", envOr("SPRITE_HOST_TEMPLATE", "http://{sandbox}.sprites.internal:8080"), "runtime base url; {sandbox} is replaced with the sandbox name")
	rootCmd.Flags().StringVar(&opts.spriteCLI, "sprite-cli", "spritectl", "provisioning CLI the launcher shells out to")
	rootCmd.Flags().IntVar(&opts.streamLimit, "stream-limit", 64, "concurrent proxied streams allowed per workspace")
	rootCmd.Flags().DurationVar(&opts.sweepInterval, "sweep-interval", 30*time.Second, "stale-job sweep cadence")
	rootCmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 5*time.Second, "queued-job poll cadence")

	rootCmd.MarkFlagsMutuallyExclusive("use-memory", "cosmos-name")
	rootCmd.MarkFlagsMutuallyExclusive("use-memory", "cosmos-url")
	rootCmd.MarkFlagsRequiredTogether("cosmos-name", "cosmos-url")
	rootCmd.MarkFlagsMutuallyExclusive("artifacts-dir", "artifacts-blob-url")

	return rootCmd
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// secrets holds the values read from the environment. It has no String()
// so a stray format verb prints the type, not the material.
type secrets struct {
	sessionKey   []byte
	spriteBearer string
	authKey      []byte
}

// readSecrets validates every secret and reports all problems at once, by
// name only, so a half-configured deployment surfaces its full fix in one
// startup failure.
func (opts *ControlPlaneOpts) readSecrets() (*secrets, error) {
	var missing []string

	s := &secrets{}

	s.sessionKey = []byte(os.Getenv(envSessionSecret))
	if len(s.sessionKey) < minSessionSecretBytes {
		missing = append(missing, fmt.Sprintf("%s (at least %d bytes)", envSessionSecret, minSessionSecretBytes))
	}

	s.spriteBearer = os.Getenv(envSpriteBearer)
	if len(s.spriteBearer) < minSpriteBearerBytes {
		missing = append(missing, fmt.Sprintf("%s (at least %d bytes)", envSpriteBearer, minSpriteBearerBytes))
	}

	if opts.identityJWKSURL == "" {
		s.authKey = []byte(os.Getenv(envAuthSecret))
		if len(s.authKey) < minSessionSecretBytes {
			missing = append(missing, fmt.Sprintf("%s (at least %d bytes, required without --identity-jwks-url)", envAuthSecret, minSessionSecretBytes))
		}
	}

	if opts.appRegistryFile == "" {
		missing = append(missing, "--app-registry")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing or invalid configuration: %s", strings.Join(missing, ", "))
	}
	return s, nil
}

func loadAppRegistry(path, defaultAppID string) (*appconfig.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading the app registration file failed: %w", err)
	}

	var registrations []appconfig.Registration
	if err := json.Unmarshal(data, &registrations); err != nil {
		return nil, fmt.Errorf("parsing the app registration file failed: %w", err)
	}

	return appconfig.NewRegistry(registrations, defaultAppID)
}

// spriteResolver maps a workspace to its runtime url through the sandbox
// naming convention and the host template.
type spriteResolver struct {
	dbClient    database.DBClient
	environment string
	template    string
}

func (r *spriteResolver) UpstreamURL(ctx context.Context, workspaceID string) (*url.URL, error) {
	workspace, err := r.dbClient.GetWorkspaceDoc(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace '%s' failed: %w", workspaceID, err)
	}

	name, err := sandbox.Name(workspace.AppID, workspace.ID, r.environment)
	if err != nil {
		return nil, err
	}

	return url.Parse(strings.ReplaceAll(r.template, "{sandbox}", name))
}

func (opts *ControlPlaneOpts) Run() error {
	ctx := context.Background()
	logger := utils.DefaultLogger()
	logger.Info(fmt.Sprintf("%s (%s) started", frontend.ProgramName, version()))

	secrets, err := opts.readSecrets()
	if err != nil {
		return err
	}

	registry, err := loadAppRegistry(opts.appRegistryFile, opts.defaultAppID)
	if err != nil {
		return err
	}

	prometheusEmitter := metrics.NewPrometheusEmitter(prometheus.DefaultRegisterer)

	var azureCredential *azidentity.DefaultAzureCredential
	if !opts.useMemory || opts.artifactsBlobURL != "" {
		azureCredential, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return fmt.Errorf("creating the Azure credential failed: %w", err)
		}
	}

	dbClient := database.DBClient(database.NewCache())
	if !opts.useMemory {
		cosmosClient, err := azcosmos.NewClient(opts.cosmosURL, azureCredential, nil)
		if err != nil {
			return fmt.Errorf("creating the Cosmos client failed: %w", err)
		}
		cosmosDatabase, err := cosmosClient.NewDatabase(opts.cosmosName)
		if err != nil {
			return fmt.Errorf("opening the Cosmos database failed: %w", err)
		}
		dbClient, err = database.NewCosmosDBClient(ctx, cosmosDatabase)
		if err != nil {
			return fmt.Errorf("creating the database client failed: %w", err)
		}
	}

	artifactStore := artifacts.Store(artifacts.NewFilesystemStore(opts.artifactsDir))
	if opts.artifactsBlobURL != "" {
		blobClient, err := azblob.NewClient(opts.artifactsBlobURL, azureCredential, nil)
		if err != nil {
			return fmt.Errorf("creating the blob client failed: %w", err)
		}
		artifactStore = artifacts.NewBlobStore(blobClient, opts.artifactsContainer)
	}

	var keyProvider auth.KeyProvider = auth.NewStaticKeyProvider(secrets.authKey)
	if opts.identityJWKSURL != "" {
		keyProvider = auth.NewJWKSProvider(opts.identityJWKSURL, nil, nil)
	}

	sessions, err := auth.NewSessionManager(auth.SessionManagerConfig{
		SigningKey:    secrets.sessionKey,
		Issuer:        opts.sessionIssuer,
		Audience:      opts.identityAudience,
		SecureCookies: !opts.insecureCookies,
	})
	if err != nil {
		return err
	}

	machine := provisioning.NewMachine(provisioning.DefaultStepTimeouts(), nil)
	provisioningService := provisioning.NewService(dbClient, machine, nil)

	listener, err := net.Listen("tcp4", fmt.Sprintf(":%d", opts.port))
	if err != nil {
		return err
	}

	f := frontend.NewFrontend(frontend.FrontendOptions{
		Logger:   logger,
		Listener: listener,
		Metrics:  prometheusEmitter,
		DBClient: dbClient,
		Resolver: appconfig.NewResolver(registry),
		Verifier: auth.NewTokenVerifier(keyProvider, opts.identityAudience, nil),
		Sessions: sessions,

		Provisioning: provisioningService,
		Sharing:      sharing.NewService(dbClient, nil),
		Auditor:      audit.NewRecorder(dbClient, nil),
		Proxy: proxy.NewWorkspaceProxy(
			proxy.NewSanitizerConfig(secrets.spriteBearer, nil),
			proxy.NewStreamRegistry(opts.streamLimit, nil),
			&spriteResolver{
				dbClient:    dbClient,
				environment: opts.environment,
				template:    opts.spriteHostTemplate,
			},
			logger),

		TrustRequestID: opts.trustRequestID,
	})

	detector := provisioning.NewStaleJobDetector(dbClient, machine, logger, nil, opts.sweepInterval)

	launcher := provisioning.NewExecLauncher(sandbox.NewRunner(logger), opts.spriteCLI)
	targetResolver := provisioning.NewTargetResolver(registry, artifactStore, opts.environment)
	driver := provisioning.NewDriver(provisioningService, targetResolver, artifactStore, launcher, logger)
	worker := provisioning.NewWorker(dbClient, driver, logger, nil, opts.pollInterval)

	jobCollector := metrics.NewJobStateCollector(prometheus.DefaultRegisterer, dbClient, nil)

	stop := make(chan struct{})
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	go f.Run(ctx, stop)
	go detector.Run(ctx, stop)
	go worker.Run(ctx, stop)
	go jobCollector.Run(logger, stop)

	sig := <-signalChannel
	logger.Info(fmt.Sprintf("caught %s signal", sig))
	close(stop)

	f.Join()
	detector.Join()
	worker.Join()
	logger.Info(fmt.Sprintf("%s (%s) stopped", frontend.ProgramName, version()))

	return nil
}

func version() string {
	version := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				version = setting.Value
				break
			}
		}
	}

	return version
}
