package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/cardmap"
	"github.com/agentstation/cardmap/cmd/application"
	"github.com/agentstation/cardmap/pkg/update"
)

// Mock provides a mock implementation of application.Application for
// testing. A nil function field yields a zero value.
//
//	mock := &application.Mock{
//	    ClientFunc: func(context.Context) (cardmap.Client, error) {
//	        return client, nil
//	    },
//	}
//	cmd := export.NewCommand(mock)
type Mock struct {
	ClientFunc       func(ctx context.Context) (cardmap.Client, error)
	ModelsFunc       func(ctx context.Context, discover bool) ([]string, error)
	RunOptionsFunc   func() []update.Option
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client(ctx context.Context) (cardmap.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(ctx)
	}
	return nil, nil
}

// Models returns models using the mock function or nil.
func (m *Mock) Models(ctx context.Context, discover bool) ([]string, error) {
	if m.ModelsFunc != nil {
		return m.ModelsFunc(ctx, discover)
	}
	return nil, nil
}

// RunOptions returns run options using the mock function or nil.
func (m *Mock) RunOptions() []update.Option {
	if m.RunOptionsFunc != nil {
		return m.RunOptionsFunc()
	}
	return nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

var _ application.Application = (*Mock)(nil)
