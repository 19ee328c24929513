package di

import (
	"context"
	"io"

	"github.com/savaki/grader-deployer/internal/credentials"
)

// Output is the writer receiving operator-facing messages
type Output io.Writer

// Option is a function that configures the dependency injection container.
type Option func(*options)

// WithContext sets the context handed to providers that need one
func WithContext(ctx context.Context) Option {
	return func(opts *options) {
		opts.ctx = ctx
	}
}

// WithOutput sets the writer for operator messages
func WithOutput(w io.Writer) Option {
	return func(opts *options) {
		opts.out = w
	}
}

// WithCredentials registers the operator's AWS credentials. Providers that
// talk to AWS fail to resolve without them.
func WithCredentials(creds credentials.Credentials) Option {
	return func(opts *options) {
		opts.creds = &creds
	}
}

// WithProviders adds constructor functions to the dependency injection container.
// Each provider should be a constructor function that returns one or more values.
// Providers can declare dependencies as function parameters, which will be
// automatically resolved by the container.
//
// Example:
//
//	WithProviders(
//	    func() *Database { return &Database{} },
//	    func(db *Database) *Service { return &Service{DB: db} },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

// WithDecorators replaces values built by the container. Each decorator
// takes the original value and returns its replacement of the same type.
//
// Example:
//
//	WithDecorators(
//	    func(publisher.LambdaAPI) publisher.LambdaAPI { return mock },
//	)
func WithDecorators(decorators ...any) Option {
	return func(opts *options) {
		opts.decorators = append(opts.decorators, decorators...)
	}
}

type options struct {
	ctx        context.Context
	out        io.Writer
	creds      *credentials.Credentials
	providers  []any
	decorators []any
}
