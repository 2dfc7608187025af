// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package rosgifx provides a remoting runtime to fx applications.
//
// The runtime is built from a *rosgiconfig.Config if the application
// provides one, and from the defaults otherwise. Capabilities provided to
// the "rosgi" value group are registered before the runtime starts.
//
// 	fx.New(
// 		fx.Provide(loadConfig),
// 		fx.Provide(fx.Annotated{Group: "rosgi", Target: newEchoCapability}),
// 		rosgifx.Module,
// 	)
package rosgifx

import (
	"context"

	rosgi "github.com/saces/r-osgi-sub000"
	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/rosgiconfig"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Module provides a *rosgi.Runtime started and stopped with the
// application.
var Module = fx.Provide(NewRuntime)

// RuntimeParams defines the dependencies of the runtime.
type RuntimeParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *rosgiconfig.Config        `optional:"true"`
	Logger    *zap.Logger                `optional:"true"`
	Scope     tally.Scope                `optional:"true"`
	Listener  capability.Listener        `optional:"true"`
	Events    capability.EventDispatcher `optional:"true"`
	Bundles   capability.BundleProvider  `optional:"true"`

	Capabilities []capability.Registration `group:"rosgi"`
}

// RuntimeResult defines the values produced by this module.
type RuntimeResult struct {
	fx.Out

	Runtime *rosgi.Runtime
}

// NewRuntime builds the runtime and registers its lifecycle hooks.
func NewRuntime(p RuntimeParams) (RuntimeResult, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = rosgiconfig.Default()
	}

	var opts []rosgi.Option
	if p.Scope != nil {
		opts = append(opts, rosgi.Scope(p.Scope))
	}
	if p.Listener != nil {
		opts = append(opts, rosgi.Listener(p.Listener))
	}
	if p.Events != nil {
		opts = append(opts, rosgi.Dispatcher(p.Events))
	}
	if p.Bundles != nil {
		opts = append(opts, rosgi.Bundles(p.Bundles))
	}

	rt, err := cfg.Build(p.Logger, opts...)
	if err != nil {
		return RuntimeResult{}, err
	}

	var errs error
	for _, reg := range p.Capabilities {
		errs = multierr.Append(errs, rt.Register(reg))
	}
	if errs != nil {
		return RuntimeResult{}, errs
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return rt.Start()
		},
		OnStop: func(context.Context) error {
			return rt.Stop()
		},
	})
	return RuntimeResult{Runtime: rt}, nil
}
