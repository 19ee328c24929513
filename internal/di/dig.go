// Package di provides a lightweight wrapper around uber's dig dependency injection framework.
// It simplifies container setup and provides type-safe dependency retrieval with generics.
package di

import (
	"context"
	"io"

	"github.com/savaki/grader-deployer/internal/config"
	"github.com/savaki/grader-deployer/internal/credentials"
	"go.uber.org/dig"
)

// Container defines a dependency injection container based on uber's dig.
// This interface allows for easy testing and mocking of the DI container.
type Container interface {
	// Invoke executes a function, injecting its dependencies from the container.
	Invoke(function any, opts ...dig.InvokeOption) error

	// Provide registers a constructor function in the container.
	Provide(constructor any, opts ...dig.ProvideOption) error

	// Decorate replaces a value already provided to the container.
	Decorate(decorator any, opts ...dig.DecorateOption) error

	// Scope creates a scoped sub-container with its own set of values.
	Scope(name string, opts ...dig.ScopeOption) *dig.Scope
}

// MustGet returns an instance constructed via dependency injection or panics.
// This is a convenience function for retrieving a dependency from the container
// when you're certain it exists. If the dependency cannot be resolved, it will panic.
//
// Example:
//
//	orch := MustGet[*orchestrator.Orchestrator](container)
func MustGet[T any](container Container) (want T) {
	callback := func(got T) {
		want = got
	}
	if err := container.Invoke(callback); err != nil {
		panic(err)
	}
	return want
}

// Get returns an instance constructed via dependency injection
func Get[T any](container Container) (want T, err error) {
	err = container.Invoke(func(got T) {
		want = got
	})
	return want, err
}

// New creates a new dependency injection container for a deploy run.
// The configuration is registered as a config.Config dependency. Without
// WithCredentials the container holds only the local stages.
//
// Example:
//
//	container, err := New(cfg,
//	    WithCredentials(creds),
//	    WithProviders(
//	        func() *Database { return &Database{} },
//	    ),
//	)
func New(cfg config.Config, opts ...Option) (Container, error) {
	o := options{
		ctx: context.Background(),
		out: io.Discard,
	}
	for _, opt := range opts {
		opt(&o)
	}

	container := dig.New()
	if err := container.Provide(func() config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() context.Context { return o.ctx }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() Output { return o.out }); err != nil {
		return nil, err
	}

	// Register all core constructors
	for _, provider := range core {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	// AWS clients are only available once credentials are known
	if o.creds != nil {
		creds := *o.creds
		if err := container.Provide(func() credentials.Credentials { return creds }); err != nil {
			return nil, err
		}
		for _, provider := range remote {
			if err := container.Provide(provider); err != nil {
				return nil, err
			}
		}
	}

	// Register all provided constructors
	for _, provider := range o.providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	for _, decorator := range o.decorators {
		if err := container.Decorate(decorator); err != nil {
			return nil, err
		}
	}

	return container, nil
}

var core = []any{
	ProvideSyncer,
	ProvideCompiler,
	ProvideArchiver,
	ProvideOrchestrator,
}

var remote = []any{
	ProvideAWSConfig,
	ProvideLambdaClient,
	ProvideLambdaAPI,
	ProvideS3Client,
	ProvideSTSClient,
	ProvideSSMClient,
	ProvideDynamoDB,
	ProvideParameterStore,
	ProvideIdentityService,
	ProvideReleaseDAO,
	ProvideReleaseService,
	ProvidePublisher,
}
